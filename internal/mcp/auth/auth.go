// Package auth validates the access token carried by a session configuration.
//
// Any non-empty token is accepted; the check only guarantees that the caller
// configured one.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	errors "github.com/Laisky/errors/v2"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/ctxkeys"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

// ErrAccessDenied indicates that the request carried no usable access token.
var ErrAccessDenied = errors.New("API key required! Please configure any API key in Smithery.")

// Context carries canonical identifiers derived from an access token.
type Context struct {
	APIKey     string
	APIKeyHash string
	KeySuffix  string
}

// ValidateAccess reports whether token is present and non-empty after trimming.
func ValidateAccess(token string) bool {
	return strings.TrimSpace(token) != ""
}

// RequireAccess returns the access token of the current request,
// or ErrAccessDenied when none was configured.
func RequireAccess(ctx context.Context) (string, error) {
	cfg, _ := sessionconfig.FromContext(ctx)
	token := cfg.AccessToken()
	if !ValidateAccess(token) {
		return "", ErrAccessDenied
	}

	return strings.TrimSpace(token), nil
}

// DeriveFromAPIKey builds a canonical authorization context from a raw API key.
func DeriveFromAPIKey(apiKey string) (*Context, error) {
	token := strings.TrimSpace(apiKey)
	if token == "" {
		return nil, ErrAccessDenied
	}

	return &Context{
		APIKey:     token,
		APIKeyHash: KeyHash(token),
		KeySuffix:  keySuffix(token),
	}, nil
}

// WithContext stores authorization context on a request context.
func WithContext(ctx context.Context, auth *Context) context.Context {
	if ctx == nil || auth == nil {
		return ctx
	}

	return context.WithValue(ctx, ctxkeys.AuthContext, auth)
}

// FromContext retrieves authorization context from a request context.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}

	auth, ok := ctx.Value(ctxkeys.AuthContext).(*Context)
	if !ok || auth == nil {
		return nil, false
	}

	return auth, true
}

// KeyHash returns the hex sha256 of the trimmed token, or "" for an empty token.
func KeyHash(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}

	hashed := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hashed[:])
}

// MaskedKey returns a non-sensitive key suffix suitable for logs.
func MaskedKey(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}

	return fmt.Sprintf("***%s", keySuffix(token))
}

// keySuffix returns the trailing key hint used for diagnostics.
func keySuffix(token string) string {
	if len(token) <= 4 {
		return token
	}

	return token[len(token)-4:]
}
