package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vendo/internal/catalog"
	"vendo/internal/policy/models"
	"vendo/internal/policy/service"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/httputil"
	"vendo/pkg/platform/middleware/auth"
	request "vendo/pkg/platform/middleware/request"
)

// Service defines the permission operations exposed over HTTP.
type Service interface {
	Can(ctx context.Context, req service.CanRequest) (models.Decision, error)
	Authorize(ctx context.Context, req service.CanRequest) error
	Matrix(ctx context.Context, tenantID id.TenantID) (*models.Matrix, error)
	ListOverrides(ctx context.Context, tenantID id.TenantID) ([]models.Override, error)
	SetOverride(ctx context.Context, actor id.UserID, o models.Override) (*models.Override, error)
	RemoveOverride(ctx context.Context, actor id.UserID, tenantID id.TenantID, cell models.OverrideKey) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants/{id}/permissions/check", h.HandleCheck)
	r.Get("/tenants/{id}/permissions/matrix", h.HandleMatrix)
	r.Get("/tenants/{id}/permissions/overrides", h.HandleListOverrides)
	r.Post("/tenants/{id}/permissions/overrides", h.HandleSetOverride)
	r.Delete("/tenants/{id}/permissions/overrides/{userID}/{module}/{action}", h.HandleRemoveOverride)
}

// principal returns the authenticated caller, enforcing that tenant
// scoped callers only touch their own tenant.
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

func tenantIDParam(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

// HandleCheck answers a single permission question.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.service.Can(ctx, service.CanRequest{
		TenantID: tenantID,
		UserID:   userID,
		Module:   id.ModuleCode(req.Module),
		Action:   id.Action(req.Action),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "permission check failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, decision)
}

// HandleMatrix returns the tenant's full permission matrix.
func (h *Handler) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	matrix, err := h.service.Matrix(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "matrix build failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, matrix)
}

// HandleListOverrides returns every override in the tenant.
func (h *Handler) HandleListOverrides(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	if _, ok := principal(w, r, tenantID); !ok {
		return
	}

	overrides, err := h.service.ListOverrides(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list overrides failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &OverrideListResponse{Overrides: overrides})
}

// HandleSetOverride writes one override cell. The caller needs the
// settings update permission within the tenant.
func (h *Handler) HandleSetOverride(w http.ResponseWriter, r *http.Request) {
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

	req, ok := httputil.DecodeAndPrepare[SetOverrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.authorizeSettings(ctx, p, tenantID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	override, err := h.service.SetOverride(ctx, p.UserID, models.Override{
		TenantID: tenantID,
		UserID:   userID,
		Module:   id.ModuleCode(req.Module),
		Action:   id.Action(req.Action),
		Allowed:  *req.Allowed,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "set override failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, override)
}

// HandleRemoveOverride deletes one override cell.
func (h *Handler) HandleRemoveOverride(w http.ResponseWriter, r *http.Request) {
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
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	if err := h.authorizeSettings(ctx, p, tenantID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	cell := models.OverrideKey{
		UserID: userID,
		Module: id.ModuleCode(chi.URLParam(r, "module")),
		Action: id.Action(chi.URLParam(r, "action")),
	}
	if err := h.service.RemoveOverride(ctx, p.UserID, tenantID, cell); err != nil {
		h.logger.ErrorContext(ctx, "remove override failed", "error", err, "request_id", requestID, "tenant_id", tenantID)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorizeSettings gates override mutations on the settings module.
// Owner-console callers bypass it, their access is structural.
func (h *Handler) authorizeSettings(ctx context.Context, p auth.Principal, tenantID id.TenantID) error {
	if p.IsOwner() {
		return nil
	}
	return h.service.Authorize(ctx, service.CanRequest{
		TenantID: tenantID,
		UserID:   p.UserID,
		Module:   catalog.ModuleSettings,
		Action:   id.ActionUpdate,
	})
}
