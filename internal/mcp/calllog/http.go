package calllog

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	mcpauth "github.com/smithery-ai/smithery-cookbook/internal/mcp/auth"
)

// NewHTTPHandler builds an HTTP handler exposing the call log APIs.
// Callers only ever see their own calls, identified by the session config token.
func NewHTTPHandler(service *Service, logger logSDK.Logger) http.Handler {
	return mcpauth.HTTPMiddleware(&httpHandler{service: service, logger: logger})
}

type httpHandler struct {
	service *Service
	logger  logSDK.Logger
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, h.logFromCtx(r.Context()), http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	h.handleList(w, r)
}

func (h *httpHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	logger := h.logFromCtx(ctx)

	if h.service == nil {
		h.writeError(w, logger, http.StatusServiceUnavailable, "call log service unavailable")
		return
	}

	authCtx, ok := mcpauth.FromContext(ctx)
	if !ok {
		h.writeError(w, logger, http.StatusUnauthorized, mcpauth.ErrAccessDenied.Error())
		return
	}

	q := r.URL.Query()
	page, pageSize := normalizePaging(parseIntDefault(q.Get("page"), defaultPage),
		parseIntDefault(q.Get("page_size"), defaultPageSize))
	sortField := q.Get("sort_by")
	sortOrder := strings.ToUpper(q.Get("sort_order"))
	tool := q.Get("tool")
	from, _ := parseDateParam(q.Get("from"))
	to, hasTime := parseDateParam(q.Get("to"))
	if !to.IsZero() && !hasTime {
		to = to.AddDate(0, 0, 1)
	}

	logger.Debug("call log list request",
		zap.String("key", mcpauth.MaskedKey(authCtx.APIKey)),
		zap.String("tool", tool),
		zap.Int("page", page),
		zap.Int("page_size", pageSize),
		zap.String("sort_field", sortField),
		zap.String("sort_order", sortOrder),
	)

	result, err := h.service.List(ctx, ListOptions{
		Page:       page,
		PageSize:   pageSize,
		ToolName:   tool,
		APIKeyHash: authCtx.APIKeyHash,
		SortField:  sortField,
		SortOrder:  sortOrder,
		From:       from,
		To:         to,
	})
	if err != nil {
		logger.Error("list call logs", zap.Error(err))
		h.writeError(w, logger, http.StatusInternalServerError, "failed to list call logs")
		return
	}

	entries := make([]map[string]any, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, map[string]any{
			"id":          entry.ID.String(),
			"tool":        entry.ToolName,
			"status":      entry.Status,
			"user_prefix": entry.KeyPrefix,
			"duration_ms": entry.DurationMillis,
			"parameters":  entry.Parameters,
			"error":       entry.ErrorMessage,
			"occurred_at": entry.OccurredAt,
		})
	}

	totalPages := int(math.Ceil(float64(result.Total) / float64(pageSize)))
	h.writeJSON(w, map[string]any{
		"data": entries,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total_items": result.Total,
			"total_pages": totalPages,
			"has_next":    page < totalPages,
			"has_prev":    page > 1 && totalPages > 0,
		},
	})
}

func (h *httpHandler) writeError(w http.ResponseWriter, logger logSDK.Logger, status int, message string) {
	if status >= http.StatusInternalServerError {
		logger.Error("call log http error", zap.Int("status", status), zap.String("message", message))
	} else {
		logger.Warn("call log http warning", zap.Int("status", status), zap.String("message", message))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

func (h *httpHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// logFromCtx prefers the request logger installed by the gin logger middleware.
func (h *httpHandler) logFromCtx(ctx context.Context) logSDK.Logger {
	if logger := gmw.GetLogger(ctx); logger != nil {
		return logger.Named("call_log_http")
	}
	if h.logger != nil {
		return h.logger
	}
	return logSDK.Shared.Named("call_log_http")
}

func parseIntDefault(value string, def int) int {
	num, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return num
}

// parseDateParam accepts RFC3339 or a bare date; hasTime is false for bare dates.
func parseDateParam(value string) (ts time.Time, hasTime bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}

	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts.UTC(), true
	}
	if ts, err := time.ParseInLocation(time.DateOnly, trimmed, time.UTC); err == nil {
		return ts, false
	}

	return time.Time{}, false
}
