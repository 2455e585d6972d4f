package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/auth"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/users"
)

// ErrDatabaseKeyRequired is reported when get_users is called without a token.
var ErrDatabaseKeyRequired = errors.New("Database API key is required for authentication")

// GetUsersTool lists the demo user directory.
type GetUsersTool struct {
	users  UserLister
	config ConfigProvider
	logger logSDK.Logger
}

// NewGetUsersTool constructs the get_users tool.
func NewGetUsersTool(lister UserLister, config ConfigProvider, logger logSDK.Logger) (*GetUsersTool, error) {
	if lister == nil {
		return nil, errors.New("user lister is required")
	}
	if config == nil {
		return nil, errors.New("config provider is required")
	}
	if logger == nil {
		logger = logSDK.Shared.Named("get_users_tool")
	}

	return &GetUsersTool{users: lister, config: config, logger: logger}, nil
}

// Definition returns the metadata describing the tool to MCP clients.
func (t *GetUsersTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"get_users",
		mcp.WithDescription("Get list of users from the database."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the tool.
func (t *GetUsersTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := t.config(ctx).AccessToken()
	if !auth.ValidateAccess(token) {
		return mcp.NewToolResultError(ErrDatabaseKeyRequired.Error()), nil
	}

	list, err := t.users.List(ctx)
	if err != nil {
		t.logger.Error("list users", zap.Error(err), zap.String("key", auth.MaskedKey(token)))
		return mcp.NewToolResultError("failed to list users"), nil
	}

	return mcp.NewToolResultText(FormatUsers(list)), nil
}

// FormatUsers renders users as a bullet list headed by the total.
func FormatUsers(list []users.User) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d users:", len(list))
	for _, u := range list {
		fmt.Fprintf(&sb, "\n- %s (%s) - Created: %s", u.Name, u.Email, u.CreatedAt.UTC().Format(time.DateOnly))
	}

	return sb.String()
}
