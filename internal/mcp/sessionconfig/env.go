package sessionconfig

import (
	"os"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Environment variables read once at startup in stdio mode.
const (
	EnvAPIKey        = "API_KEY"
	EnvServerToken   = "SERVER_TOKEN"
	EnvCaseSensitive = "CASE_SENSITIVE"
)

// ErrMissingToken reports that stdio mode was started without an access token.
var ErrMissingToken = errors.Errorf("%s environment variable is required for stdio mode", EnvAPIKey)

// FromEnv builds the stdio-mode equivalent of a decoded config query parameter.
// A nil lookup reads the process environment.
func FromEnv(lookup func(string) (string, bool)) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Config{}
	if v, ok := lookup(EnvAPIKey); ok && strings.TrimSpace(v) != "" {
		cfg[KeyAPIKey] = v
	}
	if v, ok := lookup(EnvServerToken); ok && strings.TrimSpace(v) != "" {
		cfg[KeyServerToken] = v
	}
	if v, ok := lookup(EnvCaseSensitive); ok {
		cfg[KeyCaseSensitive] = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	return cfg
}

// RequireToken fails when cfg carries no usable access token.
func RequireToken(cfg Config) error {
	if strings.TrimSpace(cfg.AccessToken()) == "" {
		return ErrMissingToken
	}

	return nil
}
