package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

func TestValidateAccess(t *testing.T) {
	require.False(t, ValidateAccess(""))
	require.False(t, ValidateAccess("   "))
	require.False(t, ValidateAccess("\t\n"))
	require.True(t, ValidateAccess("k"))
	require.True(t, ValidateAccess("  k  "))
}

func TestRequireAccessWithoutConfig(t *testing.T) {
	_, err := RequireAccess(context.Background())
	require.ErrorIs(t, err, ErrAccessDenied)
	require.Contains(t, err.Error(), "Please configure")
}

func TestRequireAccessTrimsToken(t *testing.T) {
	ctx := sessionconfig.WithContext(context.Background(), sessionconfig.Config{"apiKey": " sk-1 "})
	token, err := RequireAccess(ctx)
	require.NoError(t, err)
	require.Equal(t, "sk-1", token)
}

func TestRequireAccessServerToken(t *testing.T) {
	ctx := sessionconfig.WithContext(context.Background(), sessionconfig.Config{"serverToken": "srv"})
	token, err := RequireAccess(ctx)
	require.NoError(t, err)
	require.Equal(t, "srv", token)
}

func TestDeriveFromAPIKey(t *testing.T) {
	authCtx, err := DeriveFromAPIKey("sk-abcdef")
	require.NoError(t, err)
	require.Equal(t, "sk-abcdef", authCtx.APIKey)
	require.Len(t, authCtx.APIKeyHash, 64)
	require.Equal(t, "cdef", authCtx.KeySuffix)

	_, err = DeriveFromAPIKey(" ")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestMaskedKey(t *testing.T) {
	require.Equal(t, "***cdef", MaskedKey("sk-abcdef"))
	require.Equal(t, "***abc", MaskedKey("abc"))
	require.Empty(t, MaskedKey(""))
}

func TestHTTPMiddleware(t *testing.T) {
	var seen *Context
	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, ErrAccessDenied.Error(), body["error"])

	q, err := sessionconfig.EncodeQuery(sessionconfig.Config{"apiKey": "sk-http"})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?"+q, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "sk-http", seen.APIKey)
	require.Equal(t, KeyHash("sk-http"), seen.APIKeyHash)
}
