package mcp

import (
	"context"
	"io"
	"net/http"
	"sort"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/calllog"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/ctxkeys"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/prompts"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/tools"
	"github.com/smithery-ai/smithery-cookbook/library/log"
	"github.com/smithery-ai/smithery-cookbook/library/throttle"
)

const (
	// ServerName is announced to clients during initialization.
	ServerName = "Text Utils"
	// ServerVersion is announced to clients during initialization.
	ServerVersion = "1.0.0"

	serverInstructions = "Text utilities: uppercase, word_count, count_character, count_characters, " +
		"reverse_text, greet, add and get_users. Most tools require an apiKey in the session config."
)

// CallRecorder persists tool invocations.
type CallRecorder interface {
	Record(context.Context, calllog.RecordInput) error
}

// Limiter decides whether a caller may invoke another tool now.
type Limiter interface {
	Allow(key string) bool
}

// Options configures NewServer. Only Settings is required; a zero Settings enables every tool.
type Options struct {
	Logger   logSDK.Logger
	Settings Settings
	// Users backs get_users. The tool is not registered when nil.
	Users tools.UserLister
	// CallLog records tool invocations when set.
	CallLog CallRecorder
	// Limiter overrides the limiter built from Settings.Throttle.
	Limiter Limiter
}

// Server wraps the MCP server state shared by the HTTP and stdio transports.
type Server struct {
	mcpServer *srv.MCPServer
	handler   http.Handler
	logger    logSDK.Logger
	callLog   CallRecorder
	limiter   Limiter
	toolNames []string
}

// NewServer constructs the MCP server and registers every enabled tool and prompt.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Logger
	}

	s := &Server{
		logger:  logger.Named("mcp"),
		callLog: opts.CallLog,
		limiter: opts.Limiter,
	}
	if s.limiter == nil && opts.Settings.Throttle.Enabled() {
		limiter, err := throttle.New(throttle.Config{
			EachPerSec:  opts.Settings.Throttle.PerSecond,
			EachBurst:   opts.Settings.Throttle.Burst,
			TotalPerSec: opts.Settings.Throttle.TotalPerSecond,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new throttle")
		}
		s.limiter = limiter
	}

	s.mcpServer = srv.NewMCPServer(
		ServerName,
		ServerVersion,
		srv.WithToolCapabilities(true),
		srv.WithPromptCapabilities(true),
		srv.WithInstructions(serverInstructions),
		srv.WithRecovery(),
		srv.WithHooks(newMCPHooks(logger.Named("mcp_hooks"))),
		srv.WithToolHandlerMiddleware(s.throttleMiddleware),
		srv.WithToolHandlerMiddleware(s.callLogMiddleware),
	)

	catalog, err := tools.Catalog(tools.Deps{
		Logger: logger.Named("mcp_tools"),
		Users:  opts.Users,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build tool catalog")
	}

	for _, tool := range catalog {
		def := tool.Definition()
		if !opts.Settings.ToolEnabled(def.Name) {
			s.logger.Info("mcp tool disabled", zap.String("tool", def.Name))
			continue
		}

		s.mcpServer.AddTool(def, tool.Handle)
		s.toolNames = append(s.toolNames, def.Name)
	}
	if len(s.toolNames) == 0 {
		return nil, errors.New("no mcp tools enabled")
	}

	prompt, promptHandler := prompts.CountCharacters()
	s.mcpServer.AddPrompt(prompt, promptHandler)

	streamable := srv.NewStreamableHTTPServer(
		s.mcpServer,
		srv.WithHTTPContextFunc(s.httpContext),
		srv.WithStateLess(opts.Settings.Stateless),
	)
	s.handler = withHTTPLogging(streamable, logger.Named("mcp_http"))

	s.logger.Info("mcp server ready",
		zap.Strings("tools", s.toolNames),
		zap.Bool("stateless", opts.Settings.Stateless),
		zap.Bool("throttle", s.limiter != nil),
		zap.Bool("call_log", s.callLog != nil))
	return s, nil
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ToolNames returns the registered tool names, sorted.
func (s *Server) ToolNames() []string {
	names := append([]string(nil), s.toolNames...)
	sort.Strings(names)
	return names
}

// ServeStdio serves MCP over in/out until ctx is done or in is closed.
// Every request observes cfg, which is read once at startup.
func (s *Server) ServeStdio(ctx context.Context, cfg sessionconfig.Config, in io.Reader, out io.Writer) error {
	stdio := srv.NewStdioServer(s.mcpServer)
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		ctx = sessionconfig.WithContext(ctx, cfg)
		return context.WithValue(ctx, ctxkeys.Logger, s.logger.Named("stdio"))
	})

	s.logger.Info("serve mcp over stdio", zap.Strings("config_keys", cfg.Keys()))
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "listen stdio")
	}

	return nil
}

// httpContext scopes the session config of r to the MCP request context.
// The web layer normally decodes it already; the query is decoded here otherwise.
func (s *Server) httpContext(ctx context.Context, r *http.Request) context.Context {
	if _, ok := sessionconfig.FromContext(ctx); !ok {
		ctx = sessionconfig.WithContext(ctx, sessionconfig.FromQuery(r.URL.RawQuery, s.logger))
	}

	logger := s.logger
	if sessionID := r.Header.Get(srv.HeaderKeySessionID); sessionID != "" {
		logger = logger.With(zap.String("session_id", sessionID))
	}

	return context.WithValue(ctx, ctxkeys.Logger, logger)
}

// LoggerFromContext retrieves the per-request logger from the MCP context.
// Falls back to a shared logger if none is present in context.
func LoggerFromContext(ctx context.Context) logSDK.Logger {
	if logger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && logger != nil {
		return logger
	}
	return log.Logger.Named("mcp_fallback")
}
