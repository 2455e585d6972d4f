package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/auth"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/calllog"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	IsError bool `json:"isError"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type recorder struct {
	mu      sync.Mutex
	records []calllog.RecordInput
}

func (r *recorder) Record(_ context.Context, in calllog.RecordInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, in)
	return nil
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func initializeRequest(id int) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcpgo.LATEST_PROTOCOL_VERSION,
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0.0"},
		},
	}
}

func callToolRequest(id int, name string, args map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	}
}

// postRPC posts one JSON-RPC message and decodes the reply, accepting JSON or SSE framing.
func postRPC(t *testing.T, url, sessionID string, payload map[string]any) (rpcResponse, string) {
	t.Helper()

	out, gotSessionID, err := doRPC(url, sessionID, payload)
	require.NoError(t, err)
	return out, gotSessionID
}

// doRPC is postRPC without assertions, safe to call from worker goroutines.
func doRPC(url, sessionID string, payload map[string]any) (rpcResponse, string, error) {
	var out rpcResponse

	body, err := json.Marshal(payload)
	if err != nil {
		return out, "", errors.Wrap(err, "marshal payload")
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, "", errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set(srv.HeaderKeySessionID, sessionID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return out, "", errors.Wrap(err, "do request")
	}
	defer resp.Body.Close() // nolint: errcheck
	if resp.StatusCode != http.StatusOK {
		return out, "", errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, "", errors.Wrap(err, "read body")
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		for _, line := range strings.Split(string(raw), "\n") {
			if data, ok := strings.CutPrefix(line, "data:"); ok {
				raw = []byte(strings.TrimSpace(data))
			}
		}
	}

	if err = json.Unmarshal(raw, &out); err != nil {
		return out, "", errors.Wrapf(err, "unmarshal %q", raw)
	}
	return out, resp.Header.Get(srv.HeaderKeySessionID), nil
}

func decodeToolResult(t *testing.T, resp rpcResponse) toolResult {
	t.Helper()

	out, err := parseToolResult(resp)
	require.NoError(t, err)
	return out
}

func parseToolResult(resp rpcResponse) (toolResult, error) {
	var out toolResult
	if resp.Error != nil {
		return out, errors.Errorf("rpc error: %s", resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return out, errors.Wrap(err, "unmarshal tool result")
	}
	if len(out.Content) == 0 {
		return out, errors.New("empty tool result content")
	}
	return out, nil
}

func mustConfigURL(t *testing.T, base string, cfg sessionconfig.Config) string {
	t.Helper()

	q, err := sessionconfig.EncodeQuery(cfg)
	require.NoError(t, err)
	return base + "?" + q
}

func TestNewServerRegistersCatalog(t *testing.T) {
	s, err := NewServer(Options{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"add", "count_character", "count_characters", "greet",
		"reverse_text", "uppercase", "word_count",
	}, s.ToolNames())
}

func TestNewServerHonoursToolToggles(t *testing.T) {
	s, err := NewServer(Options{Settings: Settings{DisabledTools: map[string]bool{"greet": true, "add": true}}})
	require.NoError(t, err)
	require.NotContains(t, s.ToolNames(), "greet")
	require.NotContains(t, s.ToolNames(), "add")
	require.Contains(t, s.ToolNames(), "uppercase")
}

func TestHTTPSessionConfigIsolation(t *testing.T) {
	rec := &recorder{}
	s, err := NewServer(Options{CallLog: rec})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	const workers = 16
	urls := make([]string, workers)
	for i := range urls {
		urls[i] = mustConfigURL(t, ts.URL+"/mcp/", sessionconfig.Config{"apiKey": fmt.Sprintf("token-%02d", i)})
	}

	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errCh <- callUppercaseAs(urls[i], fmt.Sprintf("token-%02d", i))
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.records, workers*3)
	for _, r := range rec.records {
		require.Equal(t, "uppercase", r.ToolName)
		require.Equal(t, calllog.StatusSuccess, r.Status)
		// every call is attributed to the token its own request carried
		require.Equal(t, strings.ToLower(r.Parameters["text"].(string)), r.APIKey)
	}
}

// callUppercaseAs opens a session on url and checks every reply echoes token.
func callUppercaseAs(url, token string) error {
	_, sessionID, err := doRPC(url, "", initializeRequest(1))
	if err != nil {
		return errors.Wrapf(err, "initialize %s", token)
	}

	for j := 0; j < 3; j++ {
		resp, _, err := doRPC(url, sessionID, callToolRequest(2+j, "uppercase", map[string]any{"text": token}))
		if err != nil {
			return errors.Wrapf(err, "call uppercase as %s", token)
		}
		result, err := parseToolResult(resp)
		if err != nil {
			return errors.Wrapf(err, "decode result for %s", token)
		}
		if result.IsError || result.Content[0].Text != strings.ToUpper(token) {
			return errors.Errorf("%s observed %q", token, result.Content[0].Text)
		}
	}

	return nil
}

func TestHTTPMissingConfigDenied(t *testing.T) {
	s, err := NewServer(Options{Settings: Settings{Stateless: true}})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, url := range []string{ts.URL + "/mcp/", ts.URL + "/mcp/?config=%25%25%25", ts.URL + "/mcp/?config=***"} {
		_, sessionID := postRPC(t, url, "", initializeRequest(1))
		resp, _ := postRPC(t, url, sessionID, callToolRequest(2, "reverse_text", map[string]any{"text": "abc"}))
		result := decodeToolResult(t, resp)
		require.True(t, result.IsError, url)
		require.Equal(t, auth.ErrAccessDenied.Error(), result.Content[0].Text)

		// unguarded tools keep working without configuration
		resp, _ = postRPC(t, url, sessionID, callToolRequest(3, "greet", map[string]any{"name": "Ada"}))
		result = decodeToolResult(t, resp)
		require.False(t, result.IsError)
		require.Equal(t, "Hello, Ada!", result.Content[0].Text)
	}
}

func TestThrottleMiddleware(t *testing.T) {
	rec := &recorder{}
	s, err := NewServer(Options{Limiter: denyAll{}, CallLog: rec})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, sessionID := postRPC(t, ts.URL+"/mcp/", "", initializeRequest(1))
	resp, _ := postRPC(t, ts.URL+"/mcp/", sessionID, callToolRequest(2, "add", map[string]any{"a": 1, "b": 2}))
	result := decodeToolResult(t, resp)
	require.True(t, result.IsError)
	require.Equal(t, ThrottledMessage, result.Content[0].Text)
	require.Empty(t, rec.records)
}

func TestCallLogRedactsArguments(t *testing.T) {
	rec := &recorder{}
	s := &Server{callLog: rec}

	ctx := sessionconfig.WithContext(context.Background(), sessionconfig.Config{"apiKey": "sk-1"})
	s.recordToolInvocation(ctx, "uppercase",
		map[string]any{"text": "x", "apiKey": "sk-1"},
		time.Now(), -time.Second,
		mcpgo.NewToolResultError("boom"), nil)

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	require.Equal(t, calllog.StatusError, got.Status)
	require.Equal(t, "boom", got.ErrorMessage)
	require.Equal(t, redactedValue, got.Parameters["apiKey"])
	require.Zero(t, got.Duration)
	require.Equal(t, "sk-1", got.APIKey)
}

func TestCallerKey(t *testing.T) {
	require.Equal(t, anonymousCaller, callerKey(context.Background()))

	ctx := sessionconfig.WithContext(context.Background(), sessionconfig.Config{"apiKey": "k"})
	require.Equal(t, "key:"+auth.KeyHash("k"), callerKey(ctx))
}

func TestServeStdio(t *testing.T) {
	s, err := NewServer(Options{})
	require.NoError(t, err)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.ServeStdio(ctx, sessionconfig.Config{"apiKey": "stdio-key"}, inR, outW)
	}()

	// the server blocks writing replies until they are read
	replies := make(chan rpcResponse, 4)
	go func() {
		defer close(replies)
		scanner := bufio.NewScanner(outR)
		for scanner.Scan() {
			var resp rpcResponse
			if json.Unmarshal(scanner.Bytes(), &resp) == nil {
				replies <- resp
			}
		}
	}()

	enc := json.NewEncoder(inW)
	require.NoError(t, enc.Encode(initializeRequest(1)))
	require.NoError(t, enc.Encode(callToolRequest(2, "count_character",
		map[string]any{"text": "strawberry", "character": "r"})))

	var got *rpcResponse
	deadline := time.After(5 * time.Second)
	for got == nil {
		select {
		case resp, ok := <-replies:
			require.True(t, ok, "stdio output closed before tool reply")
			if resp.ID == 2 {
				got = &resp
			}
		case <-deadline:
			t.Fatal("no tool reply over stdio")
		}
	}

	result := decodeToolResult(t, *got)
	require.False(t, result.IsError)
	require.Equal(t, "The character 'r' appears 3 times in 'strawberry'", result.Content[0].Text)

	cancel()
	_ = inW.Close()
	_ = outR.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stdio server did not stop")
	}
}

func TestLoadSettingsFromConfigDefaults(t *testing.T) {
	settings := LoadSettingsFromConfig([]string{"uppercase"})
	require.True(t, settings.ToolEnabled("uppercase"))
	require.False(t, settings.Throttle.Enabled())
}

func TestParseBoolAndFloat(t *testing.T) {
	v, ok := ParseBool("YES")
	require.True(t, ok)
	require.True(t, v)

	_, ok = ParseBool("maybe")
	require.False(t, ok)

	f, ok := ParseFloat("2.5")
	require.True(t, ok)
	require.Equal(t, 2.5, f)

	_, ok = ParseFloat([]string{"x"})
	require.False(t, ok)
}
