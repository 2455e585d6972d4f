// Package sessionconfig decodes per-session configuration supplied by MCP clients
// and scopes it to a single request.
//
// Clients such as Smithery append a `config` query parameter to the MCP endpoint URL.
// Its value is base64-encoded JSON, for example:
//
//	/mcp?config=eyJhcGlLZXkiOiJzay10ZXN0In0=   // {"apiKey":"sk-test"}
//
// The decoded Config is attached to the request context with WithContext and read
// by tool handlers with FromContext. There is no process-wide config cell: two
// concurrent requests never observe each other's values.
package sessionconfig

import (
	"sort"
	"strconv"
	"strings"
)

// Recognized configuration keys.
const (
	KeyAPIKey        = "apiKey"
	KeyServerToken   = "serverToken"
	KeyCaseSensitive = "caseSensitive"
)

// Config is the decoded session configuration of one request.
// It must be treated as read-only once attached to a context.
type Config map[string]any

// Get returns the value stored under key, or def when the key is absent.
func (c Config) Get(key string, def any) any {
	if c == nil {
		return def
	}
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}

	return v
}

// String returns the value under key rendered as a string.
// Missing keys and non-scalar values yield an empty string.
func (c Config) String(key string) string {
	switch v := c.Get(key, nil).(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Bool interprets the value under key as a boolean flag.
func (c Config) Bool(key string, def bool) bool {
	switch v := c.Get(key, nil).(type) {
	case nil:
		return def
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		default:
			return def
		}
	default:
		return def
	}
}

// AccessToken returns the caller token, preferring apiKey over serverToken.
func (c Config) AccessToken() string {
	if token := c.String(KeyAPIKey); token != "" {
		return token
	}

	return c.String(KeyServerToken)
}

// CaseSensitive reports whether character counting should preserve case.
func (c Config) CaseSensitive() bool {
	return c.Bool(KeyCaseSensitive, false)
}

// Keys returns the sorted key names. Values are never exposed so the result is safe to log.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
