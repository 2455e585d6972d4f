// Package web serves the MCP endpoint and its companion routes over HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/smithery-ai/smithery-cookbook/library/log"
)

const (
	// MCPPath is the canonical MCP endpoint.
	MCPPath = "/mcp/"
	// LogsPath lists the caller's recorded tool calls.
	LogsPath = "/api/logs"

	shutdownTimeout = 10 * time.Second
)

// Options configures New.
type Options struct {
	Logger logSDK.Logger
	// MCP serves the MCP endpoint. Required.
	MCP http.Handler
	// CallLog serves LogsPath when set.
	CallLog http.Handler
	Debug   bool
}

// Server is the HTTP surface of the MCP server.
type Server struct {
	engine *gin.Engine
	logger logSDK.Logger
}

// New builds the gin engine and registers every route.
func New(opts Options) (*Server, error) {
	if opts.MCP == nil {
		return nil, errors.New("mcp handler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Logger.Named("web")
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.Use(
		gin.Recovery(),
		sessionConfigMiddleware(logger.Named("session_config")),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(logger.Named("gin")),
		),
		allowCORS,
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.Any(MCPPath, gin.WrapH(opts.MCP))
	if opts.CallLog != nil {
		engine.GET(LogsPath, gin.WrapH(opts.CallLog))
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	})

	return &Server{engine: engine, logger: logger}, nil
}

// Handler returns the root handler. It rewrites /mcp to /mcp/ before routing
// so clients are never redirected.
func (s *Server) Handler() http.Handler {
	return normalizeMCPPath(s.engine)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	pool, poolCtx := errgroup.WithContext(ctx)
	pool.Go(func() error {
		s.logger.Info("listening on http", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen %s", addr)
		}
		return nil
	})
	pool.Go(func() error {
		<-poolCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down http server")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown http server")
		}
		return nil
	})

	return pool.Wait()
}

func normalizeMCPPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/mcp" {
			u := *r.URL
			u.Path = MCPPath
			u.RawPath = ""
			r = r.Clone(r.Context())
			r.URL = &u
		}

		next.ServeHTTP(w, r)
	})
}
