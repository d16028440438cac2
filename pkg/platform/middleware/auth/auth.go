// Package auth extracts the calling principal from a bearer token.
//
// This is identification only: the middleware verifies the token signature and
// lifts user, tenant, and role claims into the request context. Session
// issuance, refresh, and revocation live outside this service.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "vendo/pkg/domain"
	"vendo/pkg/platform/middleware/request"
)

// Principal identifies the authenticated caller for permission checks.
// TenantID is nil for owner-level (super_admin) users.
type Principal struct {
	UserID   id.UserID
	TenantID id.TenantID
	Role     id.Role
}

// IsOwner reports whether the principal operates the owner console.
func (p Principal) IsOwner() bool {
	return p.Role == id.RoleSuperAdmin
}

type principalKey struct{}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithPrincipal returns a context carrying the principal. Exported for tests
// and for the owner-console middleware which authenticates differently.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// Claims are the token claims this service consumes.
type Claims struct {
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware verifies the bearer token and stores the principal in context.
// Requests without a valid token are rejected with 401 before reaching any
// handler.
func Middleware(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := principalFromHeader(r.Header.Get("Authorization"), signingKey)
			if err != nil {
				logger.WarnContext(ctx, "rejected bearer token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeUnauthorized(w, "invalid or missing bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

func principalFromHeader(header string, signingKey []byte) (Principal, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return Principal{}, errors.New("missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return signingKey, nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !token.Valid {
		return Principal{}, errors.New("token is not valid")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return Principal{}, err
	}

	principal := Principal{UserID: userID, Role: role}
	if claims.TenantID != "" {
		tenantID, err := id.ParseTenantID(claims.TenantID)
		if err != nil {
			return Principal{}, err
		}
		principal.TenantID = tenantID
	}
	// tenant_id may only be absent for owner-level users
	if principal.TenantID.IsNil() && role != id.RoleSuperAdmin {
		return Principal{}, errors.New("token lacks tenant_id for tenant-scoped role")
	}
	return principal, nil
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + desc + `"}`))
}
