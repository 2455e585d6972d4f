package calllog

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerations for recorded tool calls.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one recorded tool invocation.
type Entry struct {
	ID             uuid.UUID
	ToolName       string
	APIKeyHash     string
	KeyPrefix      string
	Status         string
	DurationMillis int64
	Parameters     map[string]any
	ErrorMessage   string
	OccurredAt     time.Time
}

// RecordInput captures the information required to persist a tool invocation.
// Parameters must already be redacted by the caller.
type RecordInput struct {
	ToolName     string
	APIKey       string
	Status       string
	Duration     time.Duration
	Parameters   map[string]any
	ErrorMessage string
	OccurredAt   time.Time
}

// ListOptions configures the result set returned by List.
type ListOptions struct {
	Page       int
	PageSize   int
	ToolName   string
	APIKeyHash string
	SortField  string
	SortOrder  string
	From       time.Time
	To         time.Time
}

// ListResult packages one page of entries along with the total count.
type ListResult struct {
	Entries []Entry
	Total   int64
}
