// Package httptransport assembles the HTTP surface: middleware stack,
// public signup, the authenticated tenant API, the owner console, and
// operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cataloghandler "vendo/internal/catalog/handler"
	"vendo/internal/platform/health"
	policyhandler "vendo/internal/policy/handler"
	tenanthandler "vendo/internal/tenant/handler"
	"vendo/pkg/platform/middleware/admin"
	"vendo/pkg/platform/middleware/auth"
	request "vendo/pkg/platform/middleware/request"
)

// Deps carries everything the router mounts.
type Deps struct {
	Tenant  *tenanthandler.Handler
	Policy  *policyhandler.Handler
	Catalog *cataloghandler.Handler
	Health  *health.Handler

	JWTSigningKey []byte
	AdminToken    string
	Logger        *slog.Logger
}

// NewRouter wires all endpoints with the shared middleware stack.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(d.Logger))
	r.Use(request.Timeout(30 * time.Second))

	// Operational endpoints stay outside authentication.
	d.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public surface: tenant self-registration and the module catalog.
	d.Tenant.RegisterPublic(r)
	d.Catalog.Register(r)

	// Tenant API, bearer-token authenticated.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.JWTSigningKey, d.Logger))
		d.Tenant.Register(r)
		d.Policy.Register(r)
	})

	// Owner console, shared-token guarded.
	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(d.AdminToken, d.Logger))
		d.Tenant.RegisterAdmin(r)
	})

	return r
}
