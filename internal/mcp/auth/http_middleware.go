package auth

import (
	"encoding/json"
	"net/http"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

// HTTPMiddleware enforces that the request carries a session config token and
// injects the derived auth context. The session config is taken from the request
// context when an outer middleware already decoded it, otherwise from the query.
func HTTPMiddleware(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := sessionconfig.FromContext(ctx); !ok {
			ctx = sessionconfig.WithContext(ctx, sessionconfig.FromQuery(r.URL.RawQuery, nil))
		}

		token, err := RequireAccess(ctx)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}

		authCtx, err := DeriveFromAPIKey(token)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithContext(ctx, authCtx)))
	})
}

// writeUnauthorized writes a standardized 401 body for auth middleware failures.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
