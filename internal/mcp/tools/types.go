package tools

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/auth"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/users"
)

// Tool exposes the capabilities required by the MCP server registration lifecycle.
type Tool interface {
	Definition() mcp.Tool
	Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// AccessChecker returns the caller token of the current request or an error
// when the request is not allowed to use guarded tools.
type AccessChecker func(context.Context) (string, error)

// ConfigProvider returns the session configuration of the current request.
type ConfigProvider func(context.Context) sessionconfig.Config

// UserLister exposes the subset of the user directory required by get_users.
type UserLister interface {
	List(context.Context) ([]users.User, error)
}

// Deps bundles the collaborators shared by the catalog tools.
type Deps struct {
	Logger logSDK.Logger
	Access AccessChecker
	Config ConfigProvider
	Users  UserLister
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logSDK.Shared.Named("mcp_tools")
	}
	if d.Access == nil {
		d.Access = auth.RequireAccess
	}
	if d.Config == nil {
		d.Config = func(ctx context.Context) sessionconfig.Config {
			cfg, _ := sessionconfig.FromContext(ctx)
			return cfg
		}
	}

	return d
}

// Names lists every tool Catalog can return, in registration order.
var Names = []string{
	"uppercase",
	"word_count",
	"count_character",
	"count_characters",
	"reverse_text",
	"greet",
	"add",
	"get_users",
}

// Catalog returns every tool the server can expose, in registration order.
// get_users is only included when a user directory is supplied.
func Catalog(deps Deps) ([]Tool, error) {
	deps = deps.withDefaults()

	catalog := []Tool{
		NewUppercaseTool(deps.Access),
		NewWordCountTool(deps.Access),
		NewCountCharacterTool(deps.Access, deps.Config),
		NewCountCharactersTool(deps.Access, deps.Config),
		NewReverseTextTool(deps.Access),
		NewGreetTool(),
		NewAddTool(),
	}

	if deps.Users != nil {
		getUsers, err := NewGetUsersTool(deps.Users, deps.Config, deps.Logger.Named("get_users"))
		if err != nil {
			return nil, errors.Wrap(err, "new get_users tool")
		}
		catalog = append(catalog, getUsers)
	}

	return catalog, nil
}

// guard runs the access check and converts a denial into a tool error result.
func guard(ctx context.Context, access AccessChecker) *mcp.CallToolResult {
	if access == nil {
		access = auth.RequireAccess
	}
	if _, err := access(ctx); err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	return nil
}
