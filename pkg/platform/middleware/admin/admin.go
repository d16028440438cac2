// Package admin guards the owner console with a shared token. Owner-console
// requests operate outside tenant entitlement, so they carry an explicit
// actor header for audit attribution instead of a tenant-scoped principal.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"vendo/pkg/platform/middleware/request"
)

type contextKeyAdminActorID struct{}

// GetAdminActorID retrieves the owner-console actor identifier from the context.
// Returns empty string if not set or if this is not an owner-console request.
func GetAdminActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(contextKeyAdminActorID{}).(string); ok {
		return actorID
	}
	return ""
}

// RequireAdminToken rejects requests whose X-Admin-Token header does not match
// the configured token. Uses constant-time comparison.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			ctx := r.Context()
			// Capture the actor identifier for audit attribution.
			if actorID := r.Header.Get("X-Admin-Actor-ID"); actorID != "" {
				ctx = context.WithValue(ctx, contextKeyAdminActorID{}, actorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
