package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// RequireAdminKey gates operator endpoints behind a shared key. An empty
// configured key disables the endpoints entirely rather than leaving them
// open.
func RequireAdminKey(expectedKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"success":false,"error":"not_found","message":"not found"}`))
				return
			}

			key := r.Header.Get("X-Admin-Key")
			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(key), []byte(expectedKey)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin key mismatch",
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized","message":"admin key required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
