package web

import (
	"net/http"
	"net/url"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-gonic/gin"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

// sessionConfigMiddleware decodes the session config of the request into its context,
// then strips the token-bearing parameters from the URL so later middlewares never log them.
// It runs before the request logger is installed, so it logs through logger.
func sessionConfigMiddleware(logger logSDK.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Request.URL.RawQuery
		cfg := sessionconfig.FromQuery(raw, logger)
		c.Request = c.Request.WithContext(sessionconfig.WithContext(c.Request.Context(), cfg))

		if raw != "" {
			if values, err := url.ParseQuery(raw); err == nil {
				values.Del(sessionconfig.QueryParam)
				values.Del(sessionconfig.LegacyAPIKeyParam)
				c.Request.URL.RawQuery = values.Encode()
			}
		}

		c.Next()
	}
}

// allowCORS admits any origin. MCP clients need the session headers exposed.
func allowCORS(c *gin.Context) {
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")
	} else {
		c.Header("Access-Control-Allow-Origin", "*")
	}

	allowHeaders := c.Request.Header.Get("Access-Control-Request-Headers")
	if allowHeaders == "" {
		allowHeaders = "*"
	}
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", allowHeaders)
	c.Header("Access-Control-Expose-Headers", "mcp-session-id, mcp-protocol-version")
	c.Header("Access-Control-Max-Age", "86400") // 24 hours

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	c.Next()
}
