// Package ctxkeys declares the context keys shared by MCP packages.
package ctxkeys

// Key identifies a context value propagated across MCP services.
type Key string

const (
	// Logger stores the per-request logger within tool contexts.
	Logger Key = "mcp_logger"
	// SessionConfig stores the decoded session configuration of one request.
	SessionConfig Key = "mcp_session_config"
	// AuthContext stores the auth context derived from the session token.
	AuthContext Key = "mcp_auth_context"
)
