package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vendo/internal/catalog"
	"vendo/internal/entitlement"
	policy "vendo/internal/policy/service"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/httputil"
	"vendo/pkg/platform/middleware/admin"
	"vendo/pkg/platform/middleware/auth"
	request "vendo/pkg/platform/middleware/request"
)

// Service defines the tenant lifecycle and resource operations exposed
// over HTTP.
type Service interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.Tenant, error)
	ApproveTrial(ctx context.Context, actor id.UserID, tenantID id.TenantID) (*models.Tenant, error)
	Upgrade(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.UpgradeRequest) (*models.Tenant, error)
	Suspend(ctx context.Context, actor id.UserID, tenantID id.TenantID) (*models.Tenant, error)
	Reactivate(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.ReactivateRequest) (*models.Tenant, error)
	AssignPackage(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.AssignPackageRequest) (*models.Tenant, error)

	ActivateModule(ctx context.Context, actor id.UserID, tenantID id.TenantID, module id.ModuleCode, ownerGranted bool) (*models.ModuleActivation, error)
	DeactivateModule(ctx context.Context, actor id.UserID, tenantID id.TenantID, module id.ModuleCode) (*models.ModuleActivation, error)
	ListActivations(ctx context.Context, tenantID id.TenantID) ([]models.ModuleActivation, error)
	RecommendedModules(ctx context.Context, tenantID id.TenantID) ([]catalog.Recommendation, error)

	CreateUser(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.CreateUserRequest) (*models.User, error)
	CreateBranch(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.CreateBranchRequest) (*models.Branch, error)

	Tenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	Tenants(ctx context.Context) ([]models.Tenant, error)
	Packages(ctx context.Context) ([]models.SubscriptionPackage, error)
	Users(ctx context.Context, tenantID id.TenantID) ([]models.User, error)
	Branches(ctx context.Context, tenantID id.TenantID) ([]models.Branch, error)
	Entitlements(ctx context.Context, tenantID id.TenantID) (*entitlement.Snapshot, error)
}

// Authorizer answers permission questions for tenant-scoped mutations.
type Authorizer interface {
	Authorize(ctx context.Context, req policy.CanRequest) error
}

type Handler struct {
	service    Service
	authorizer Authorizer
	logger     *slog.Logger
}

func New(service Service, authorizer Authorizer, logger *slog.Logger) *Handler {
	return &Handler{service: service, authorizer: authorizer, logger: logger}
}

// RegisterPublic wires the unauthenticated surface.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/signup", h.HandleSignup)
}

// Register wires the authenticated tenant surface.
func (h *Handler) Register(r chi.Router) {
	r.Get("/packages", h.HandleListPackages)

	r.Route("/tenants/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGetTenant)
		r.Get("/entitlements", h.HandleEntitlements)

		r.Get("/modules", h.HandleListActivations)
		r.Get("/modules/recommended", h.HandleRecommendedModules)
		r.Post("/modules/activate", h.HandleActivateModule)
		r.Post("/modules/deactivate", h.HandleDeactivateModule)

		r.Get("/users", h.HandleListUsers)
		r.Post("/users", h.HandleCreateUser)
		r.Get("/branches", h.HandleListBranches)
		r.Post("/branches", h.HandleCreateBranch)
	})
}

// RegisterAdmin wires the owner console. The router guards these routes
// with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/tenants", h.HandleListTenants)
	r.Post("/tenants/{id}/approve-trial", h.HandleApproveTrial)
	r.Post("/tenants/{id}/upgrade", h.HandleUpgrade)
	r.Post("/tenants/{id}/suspend", h.HandleSuspend)
	r.Post("/tenants/{id}/reactivate", h.HandleReactivate)
	r.Post("/tenants/{id}/package", h.HandleAssignPackage)
	r.Post("/tenants/{id}/modules/grant", h.HandleOwnerGrantModule)
}

func tenantIDParam(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

// principal returns the authenticated caller, enforcing tenant scope.
func principal(w http.ResponseWriter, r *http.Request, tenantID id.TenantID) (auth.Principal, bool) {
	p, ok := auth.GetPrincipal(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return auth.Principal{}, false
	}
	if !p.IsOwner() && p.TenantID != tenantID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "tenant scope mismatch"))
		return auth.Principal{}, false
	}
	return p, true
}

// adminActor resolves the owner-console actor for audit attribution.
// The header is optional, an absent or malformed value yields the zero
// actor rather than a rejected request.
func adminActor(ctx context.Context) id.UserID {
	raw := admin.GetAdminActorID(ctx)
	if raw == "" {
		return id.UserID{}
	}
	actorID, err := id.ParseUserID(raw)
	if err != nil {
		return id.UserID{}
	}
	return actorID
}

// authorizeSettings gates self-service mutations on the settings module.
func (h *Handler) authorizeSettings(ctx context.Context, p auth.Principal, tenantID id.TenantID, action id.Action) error {
	if p.IsOwner() {
		return nil
	}
	return h.authorizer.Authorize(ctx, policy.CanRequest{
		TenantID: tenantID,
		UserID:   p.UserID,
		Module:   catalog.ModuleSettings,
		Action:   action,
	})
}

// HandleSignup registers a new tenant. The tenant starts in
// trial_pending and waits for owner approval.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SignupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.service.Signup(ctx, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "signup failed", "error", err, "request_id", requestID, "slug", req.Slug)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	tenant, err := h.service.Tenant(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get tenant failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// HandleEntitlements returns the tenant's effective modules and quotas.
func (h *Handler) HandleEntitlements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	snapshot, err := h.service.Entitlements(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "entitlement resolve failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEntitlementResponse(snapshot))
}

func (h *Handler) HandleListActivations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	activations, err := h.service.ListActivations(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list activations failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ActivationListResponse{Activations: activations})
}

func (h *Handler) HandleRecommendedModules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	recommendations, err := h.service.RecommendedModules(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "recommended modules failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &RecommendationListResponse{Recommendations: recommendations})
}

// HandleActivateModule opts the tenant into a module it is eligible for.
func (h *Handler) HandleActivateModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	p, ok := principal(w, r, tenantID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ModuleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.authorizeSettings(ctx, p, tenantID, id.ActionUpdate); err != nil {
		httputil.WriteError(w, err)
		return
	}

	activation, err := h.service.ActivateModule(ctx, p.UserID, tenantID, id.ModuleCode(req.Module), false)
	if err != nil {
		h.logger.ErrorContext(ctx, "module activation failed", "error", err, "request_id", requestID, "tenant_id", tenantID, "module", req.Module)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, activation)
}

func (h *Handler) HandleDeactivateModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	p, ok := principal(w, r, tenantID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ModuleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.authorizeSettings(ctx, p, tenantID, id.ActionUpdate); err != nil {
		httputil.WriteError(w, err)
		return
	}

	activation, err := h.service.DeactivateModule(ctx, p.UserID, tenantID, id.ModuleCode(req.Module))
	if err != nil {
		h.logger.ErrorContext(ctx, "module deactivation failed", "error", err, "request_id", requestID, "tenant_id", tenantID, "module", req.Module)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, activation)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	users, err := h.service.Users(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list users failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &UserListResponse{Users: users})
}

// HandleCreateUser adds a staff account, subject to the user quota.
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	p, ok := principal(w, r, tenantID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.authorizeSettings(ctx, p, tenantID, id.ActionCreate); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.CreateUser(ctx, p.UserID, tenantID, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "create user failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleListBranches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	branches, err := h.service.Branches(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list branches failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &BranchListResponse{Branches: branches})
}

// HandleCreateBranch adds a location, subject to the branch quota.
func (h *Handler) HandleCreateBranch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	p, ok := principal(w, r, tenantID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CreateBranchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.authorizeSettings(ctx, p, tenantID, id.ActionCreate); err != nil {
		httputil.WriteError(w, err)
		return
	}

	branch, err := h.service.CreateBranch(ctx, p.UserID, tenantID, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "create branch failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, branch)
}

func (h *Handler) HandleListPackages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	packages, err := h.service.Packages(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list packages failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &PackageListResponse{Packages: packages})
}

func (h *Handler) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenants, err := h.service.Tenants(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list tenants failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &TenantListResponse{Tenants: tenants})
}

// HandleApproveTrial starts the trial window for a pending tenant.
func (h *Handler) HandleApproveTrial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	tenant, err := h.service.ApproveTrial(ctx, adminActor(ctx), tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "trial approval failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Handler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpgradeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.service.Upgrade(ctx, adminActor(ctx), tenantID, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "upgrade failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}

	tenant, err := h.service.Suspend(ctx, adminActor(ctx), tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "suspension failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ReactivateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.service.Reactivate(ctx, adminActor(ctx), tenantID, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "reactivation failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// HandleAssignPackage changes the tenant's package. Downgrades
// deactivate modules the new package no longer covers, except
// owner-granted ones.
func (h *Handler) HandleAssignPackage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.AssignPackageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tenant, err := h.service.AssignPackage(ctx, adminActor(ctx), tenantID, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "package assignment failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// HandleOwnerGrantModule activates a module outside the tenant's
// package. Owner grants survive package downgrades.
func (h *Handler) HandleOwnerGrantModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ModuleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	activation, err := h.service.ActivateModule(ctx, adminActor(ctx), tenantID, id.ModuleCode(req.Module), true)
	if err != nil {
		h.logger.ErrorContext(ctx, "owner module grant failed", "error", err, "request_id", requestID, "tenant_id", tenantID, "module", req.Module)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, activation)
}
