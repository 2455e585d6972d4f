// Package calllog records MCP tool invocations in SQLite and serves them back per caller.
package calllog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/auth"
	"github.com/smithery-ai/smithery-cookbook/library/log"
)

// Clock provides the current time in UTC.
type Clock func() time.Time

// DB defines the database capabilities required by the call log service.
// *sql.DB satisfies it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ DB = (*sql.DB)(nil)

// Service persists and queries tool invocation call logs.
type Service struct {
	db     DB
	logger logSDK.Logger
	clock  Clock
}

const (
	defaultPage = 1
	// defaultPageSize sets the fallback page size for list queries.
	defaultPageSize = 20
	// maxPageSize caps the page size for list queries.
	maxPageSize = 100

	sortFieldOccurredAt = "occurred_at"
	sortFieldDuration   = "duration"

	keyPrefixLength = 7
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS mcp_call_logs (
		id TEXT PRIMARY KEY,
		tool_name TEXT NOT NULL,
		api_key_hash TEXT NOT NULL DEFAULT '',
		key_prefix TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		duration_millis INTEGER NOT NULL DEFAULT 0,
		parameters TEXT NOT NULL DEFAULT '{}',
		error_message TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_call_logs_tool_name ON mcp_call_logs (tool_name)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_call_logs_api_key_hash ON mcp_call_logs (api_key_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_call_logs_occurred_at ON mcp_call_logs (occurred_at DESC)`,
}

// NewService constructs a Service and migrates the call log table.
func NewService(ctx context.Context, db DB, logger logSDK.Logger, clock Clock) (*Service, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = log.Logger.Named("call_log_service")
	}
	if clock == nil {
		clock = func() time.Time {
			return time.Now().UTC()
		}
	}

	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errors.Wrap(err, "migrate call log table")
		}
	}

	return &Service{db: db, logger: logger, clock: clock}, nil
}

// Record stores a tool invocation.
func (s *Service) Record(ctx context.Context, input RecordInput) error {
	if s == nil {
		return errors.New("call log service is nil")
	}
	toolName := strings.TrimSpace(input.ToolName)
	if toolName == "" {
		return errors.New("tool name is required")
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = StatusSuccess
	}

	params := input.Parameters
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "marshal call log parameters")
	}

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	}

	keyHash, keyPrefix := normalizeAPIKey(input.APIKey)
	id := gutils.UUID7Bytes()

	// the call has already happened; persist it even if the request was cancelled
	ctx = context.WithoutCancel(ctx)
	if _, err = s.db.ExecContext(ctx, `
		INSERT INTO mcp_call_logs (
			id, tool_name, api_key_hash, key_prefix, status,
			duration_millis, parameters, error_message, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		toolName,
		keyHash,
		keyPrefix,
		status,
		input.Duration.Milliseconds(),
		string(payload),
		strings.TrimSpace(input.ErrorMessage),
		occurred.UTC(),
	); err != nil {
		return errors.Wrap(err, "insert call log record")
	}

	s.logger.Debug("recorded call log",
		zap.String("tool", toolName),
		zap.String("status", status),
		zap.String("id", id.String()))
	return nil
}

// List retrieves records that match the provided filters and pagination options.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if s == nil {
		return nil, errors.New("call log service is nil")
	}

	toolName, err := sanitizeFilter(opts.ToolName, maxToolNameLength, "tool name")
	if err != nil {
		return nil, errors.Wrap(err, "sanitize tool name")
	}
	page, size := normalizePaging(opts.Page, opts.PageSize)

	var (
		clauses []string
		args    []any
	)
	if opts.APIKeyHash != "" {
		clauses = append(clauses, "api_key_hash = ?")
		args = append(args, opts.APIKeyHash)
	}
	if toolName != "" {
		clauses = append(clauses, "tool_name = ?")
		args = append(args, toolName)
	}
	if !opts.From.IsZero() {
		clauses = append(clauses, "occurred_at >= ?")
		args = append(args, opts.From.UTC())
	}
	if !opts.To.IsZero() {
		clauses = append(clauses, "occurred_at < ?")
		args = append(args, opts.To.UTC())
	}
	whereSQL := ""
	if len(clauses) > 0 {
		whereSQL = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM mcp_call_logs"+whereSQL, args...).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "count call log records")
	}

	orderDirection := strings.ToUpper(strings.TrimSpace(opts.SortOrder))
	if orderDirection != "ASC" {
		orderDirection = "DESC"
	}
	listSQL := fmt.Sprintf(`
		SELECT id, tool_name, api_key_hash, key_prefix, status,
			duration_millis, parameters, error_message, occurred_at
		FROM mcp_call_logs%s
		ORDER BY %s %s, id %s
		LIMIT ? OFFSET ?`,
		whereSQL, mapSortField(opts.SortField), orderDirection, orderDirection)

	rows, err := s.db.QueryContext(ctx, listSQL, append(args, size, (page-1)*size)...)
	if err != nil {
		return nil, errors.Wrap(err, "query call log records")
	}
	defer rows.Close() // nolint: errcheck

	entries := make([]Entry, 0, size)
	for rows.Next() {
		var (
			entry   Entry
			rawID   string
			payload string
		)
		if err := rows.Scan(
			&rawID,
			&entry.ToolName,
			&entry.APIKeyHash,
			&entry.KeyPrefix,
			&entry.Status,
			&entry.DurationMillis,
			&payload,
			&entry.ErrorMessage,
			&entry.OccurredAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan call log record")
		}

		if entry.ID, err = uuid.Parse(rawID); err != nil {
			return nil, errors.Wrapf(err, "parse call log id %q", rawID)
		}

		entry.Parameters = map[string]any{}
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &entry.Parameters); err != nil {
				s.logger.Warn("decode call log parameters", zap.Error(err), zap.String("record_id", rawID))
				entry.Parameters = map[string]any{}
			}
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate call log rows")
	}

	return &ListResult{Entries: entries, Total: total}, nil
}

func mapSortField(field string) string {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case sortFieldDuration:
		return "duration_millis"
	default:
		return sortFieldOccurredAt
	}
}

// normalizeAPIKey returns the key hash used for filtering and a short prefix for display.
func normalizeAPIKey(apiKey string) (hash string, prefix string) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return "", ""
	}

	prefix = trimmed
	if len(prefix) > keyPrefixLength {
		prefix = prefix[:keyPrefixLength]
	}

	return auth.KeyHash(trimmed), prefix
}
