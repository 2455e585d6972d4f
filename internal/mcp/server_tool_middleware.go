package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/auth"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/calllog"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

// ThrottledMessage is the tool error returned to callers over their rate limit.
const ThrottledMessage = "rate limit exceeded, retry later"

const anonymousCaller = "anonymous"

// throttleMiddleware rejects calls from callers that exhausted their token bucket.
func (s *Server) throttleMiddleware(next srv.ToolHandlerFunc) srv.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if s.limiter == nil {
			return next(ctx, req)
		}

		key := callerKey(ctx)
		if !s.limiter.Allow(key) {
			LoggerFromContext(ctx).Warn("mcp tool call throttled",
				zap.String("tool", req.Params.Name),
				zap.String("caller", key))
			return mcp.NewToolResultError(ThrottledMessage), nil
		}

		return next(ctx, req)
	}
}

// callLogMiddleware records every completed tool call.
func (s *Server) callLogMiddleware(next srv.ToolHandlerFunc) srv.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startedAt := time.Now()
		result, err := next(ctx, req)
		s.recordToolInvocation(ctx, req.Params.Name, req.GetArguments(), startedAt, time.Since(startedAt), result, err)
		return result, err
	}
}

// callerKey identifies the caller for throttling: the token hash,
// then the MCP session, then a shared anonymous bucket.
func callerKey(ctx context.Context) string {
	cfg, _ := sessionconfig.FromContext(ctx)
	if token := cfg.AccessToken(); auth.ValidateAccess(token) {
		return "key:" + auth.KeyHash(token)
	}
	if session := srv.ClientSessionFromContext(ctx); session != nil && session.SessionID() != "" {
		return "session:" + session.SessionID()
	}

	return anonymousCaller
}

func (s *Server) recordToolInvocation(ctx context.Context,
	toolName string,
	args map[string]any,
	startedAt time.Time,
	duration time.Duration,
	result *mcp.CallToolResult,
	invokeErr error,
) {
	logger := LoggerFromContext(ctx)
	if s.callLog == nil {
		return
	}

	status := calllog.StatusSuccess
	errorMessage := ""
	if invokeErr != nil {
		status = calllog.StatusError
		errorMessage = invokeErr.Error()
	}
	if result != nil && result.IsError {
		status = calllog.StatusError
		if msg := toolErrorMessage(result); msg != "" {
			if errorMessage == "" {
				errorMessage = msg
			} else {
				errorMessage = fmt.Sprintf("%s | %s", errorMessage, msg)
			}
		}
	}

	cfg, _ := sessionconfig.FromContext(ctx)
	input := calllog.RecordInput{
		ToolName:     toolName,
		APIKey:       cfg.AccessToken(),
		Status:       status,
		Duration:     max(duration, 0),
		Parameters:   redactArguments(args),
		ErrorMessage: errorMessage,
		OccurredAt:   startedAt.UTC(),
	}

	if err := s.callLog.Record(ctx, input); err != nil {
		logger.Warn("record call log", zap.Error(err), zap.String("tool", toolName))
	}
}

func toolErrorMessage(result *mcp.CallToolResult) string {
	if result == nil || !result.IsError {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			if txt := strings.TrimSpace(textContent.Text); txt != "" {
				return txt
			}
		}
	}
	return ""
}
