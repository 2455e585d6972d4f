package sessionconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigAccessTokenFallsBackToServerToken(t *testing.T) {
	require.Equal(t, "srv", Config{"serverToken": "srv"}.AccessToken())
	require.Equal(t, "api", Config{"serverToken": "srv", "apiKey": "api"}.AccessToken())
	require.Empty(t, Config{}.AccessToken())

	var nilCfg Config
	require.Empty(t, nilCfg.AccessToken())
}

func TestConfigBool(t *testing.T) {
	cfg := Config{
		"a": true,
		"b": "TRUE",
		"c": float64(0),
		"d": "maybe",
		"e": []any{1},
	}

	require.True(t, cfg.Bool("a", false))
	require.True(t, cfg.Bool("b", false))
	require.False(t, cfg.Bool("c", true))
	require.True(t, cfg.Bool("d", true))
	require.False(t, cfg.Bool("e", false))
	require.True(t, cfg.Bool("missing", true))
}

func TestConfigString(t *testing.T) {
	cfg := Config{"n": float64(12), "s": "x", "b": false, "m": map[string]any{}}
	require.Equal(t, "12", cfg.String("n"))
	require.Equal(t, "x", cfg.String("s"))
	require.Equal(t, "false", cfg.String("b"))
	require.Empty(t, cfg.String("m"))
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"API_KEY":        "sk-env",
		"CASE_SENSITIVE": "True",
		"DEBUG":          "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := FromEnv(lookup)
	require.Equal(t, "sk-env", cfg.AccessToken())
	require.True(t, cfg.CaseSensitive())
	// only the recognized variables are relayed
	require.Equal(t, []string{KeyAPIKey, KeyCaseSensitive}, cfg.Keys())
	require.NoError(t, RequireToken(cfg))
}

func TestRequireTokenMissing(t *testing.T) {
	cfg := FromEnv(func(k string) (string, bool) {
		if k == EnvAPIKey {
			return "   ", true
		}
		return "", false
	})

	require.ErrorIs(t, RequireToken(cfg), ErrMissingToken)
	require.Contains(t, RequireToken(cfg).Error(), "API_KEY")

	cfg = FromEnv(func(k string) (string, bool) {
		if k == EnvServerToken {
			return "srv", true
		}
		return "", false
	})
	require.NoError(t, RequireToken(cfg))
}
