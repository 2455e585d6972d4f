package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type seen struct {
	Path  string `json:"path"`
	Query string `json:"query"`
	Token string `json:"token"`
	Found bool   `json:"found"`
}

// echoHandler reports what the MCP handler observed.
func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg, ok := sessionconfig.FromContext(r.Context())
		_ = json.NewEncoder(w).Encode(seen{
			Path:  r.URL.Path,
			Query: r.URL.RawQuery,
			Token: cfg.AccessToken(),
			Found: ok,
		})
	})
}

func newTestServer(t *testing.T, callLog http.Handler) http.Handler {
	t.Helper()
	setupGinTestMode()

	s, err := New(Options{MCP: echoHandler(), CallLog: callLog, Debug: true})
	require.NoError(t, err)
	return s.Handler()
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresMCPHandler(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestMCPPathNormalized(t *testing.T) {
	h := newTestServer(t, nil)

	for _, target := range []string{"/mcp", "/mcp/"} {
		rec := serve(h, http.MethodPost, target, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)

		var got seen
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Equal(t, MCPPath, got.Path)
	}
}

func TestSessionConfigAttachedAndScrubbed(t *testing.T) {
	h := newTestServer(t, nil)

	q, err := sessionconfig.EncodeQuery(sessionconfig.Config{"apiKey": "sk-web"})
	require.NoError(t, err)

	rec := serve(h, http.MethodPost, "/mcp?"+q+"&keep=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got seen
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.True(t, got.Found)
	require.Equal(t, "sk-web", got.Token)
	require.Equal(t, "keep=1", got.Query)

	rec = serve(h, http.MethodPost, "/mcp/?config=***", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.True(t, got.Found)
	require.Empty(t, got.Token)
}

// TestSessionConfigLogsThroughServerLogger verifies decode warnings reach the logger passed to New.
func TestSessionConfigLogsThroughServerLogger(t *testing.T) {
	setupGinTestMode()

	logPath := filepath.Join(t.TempDir(), "web.log")
	logger, err := logSDK.New(
		logSDK.WithName("web_test"),
		logSDK.WithOutputPaths([]string{logPath}),
		logSDK.WithErrorOutputPaths([]string{logPath}),
	)
	require.NoError(t, err)

	s, err := New(Options{Logger: logger, MCP: echoHandler(), Debug: true})
	require.NoError(t, err)

	rec := serve(s.Handler(), http.MethodPost, "/mcp/?config=***", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_ = logger.Sync()
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "ignore malformed session config")
	require.Contains(t, string(content), "session_config")
}

func TestAllowCORS(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, http.MethodOptions, "/mcp", http.Header{
		"Origin":                         {"https://smithery.ai"},
		"Access-Control-Request-Method":  {"POST"},
		"Access-Control-Request-Headers": {"content-type, mcp-session-id"},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://smithery.ai", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "content-type, mcp-session-id", rec.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, "mcp-session-id, mcp-protocol-version", rec.Header().Get("Access-Control-Expose-Headers"))
	require.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))

	rec = serve(h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes(t *testing.T) {
	logs := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := newTestServer(t, logs)

	rec := serve(h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(h, http.MethodGet, LogsPath, nil)
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec = serve(h, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// without a call log the route is absent
	rec = serve(newTestServer(t, nil), http.MethodGet, LogsPath, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	setupGinTestMode()
	s, err := New(Options{MCP: echoHandler(), Debug: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
