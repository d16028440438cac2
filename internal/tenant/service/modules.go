package service

import (
	"context"
	"errors"
	"time"

	"vendo/internal/catalog"
	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/audit"
)

// ActivateModule opts the tenant into a module. Regular activation
// requires the module to be within reach of the subscription: bundled
// in the package, or anything in the catalog while trialing without
// one. Owner-granted activation bypasses that check and marks the row
// so package changes never claw the module back.
func (s *Service) ActivateModule(ctx context.Context, actor id.UserID, tenantID id.TenantID, module id.ModuleCode, ownerGranted bool) (*models.ModuleActivation, error) {
	if err := s.registry.Validate(module); err != nil {
		return nil, err
	}
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if !ownerGranted {
		eligible, err := s.eligibleModules(ctx, tenant)
		if err != nil {
			return nil, err
		}
		if _, ok := eligible[module]; !ok {
			return nil, dErrors.New(dErrors.CodeNotEntitled, "module is not included in the tenant's package")
		}
	}

	// Owner grants are sticky: once granted, a plain re-activation
	// must not erase the flag.
	existing, err := s.activations.Find(ctx, tenantID, module)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load activation")
	}
	if existing != nil && existing.OwnerGranted {
		ownerGranted = true
	}

	activation := models.ModuleActivation{
		TenantID:     tenantID,
		Module:       module,
		Status:       models.ActivationActive,
		OwnerGranted: ownerGranted,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.activations.Upsert(ctx, activation); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store activation")
	}

	s.invalidate(tenantID)
	if s.metrics != nil {
		s.metrics.IncrementModuleActivations("activated")
	}
	reason := "tenant_request"
	if ownerGranted {
		reason = "owner_grant"
	}
	s.emitAudit(ctx, actor, tenantID, module, audit.EventModuleActivated, "allow", reason)
	return &activation, nil
}

// DeactivateModule opts the tenant out of a module. The row is kept
// with inactive status so history and the owner-granted flag survive.
func (s *Service) DeactivateModule(ctx context.Context, actor id.UserID, tenantID id.TenantID, module id.ModuleCode) (*models.ModuleActivation, error) {
	if err := s.registry.Validate(module); err != nil {
		return nil, err
	}
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	existing, err := s.activations.Find(ctx, tenantID, module)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "module is not activated")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load activation")
	}

	existing.Status = models.ActivationInactive
	existing.UpdatedAt = time.Now().UTC()
	if err := s.activations.Upsert(ctx, *existing); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store activation")
	}

	s.invalidate(tenantID)
	if s.metrics != nil {
		s.metrics.IncrementModuleActivations("deactivated")
	}
	s.emitAudit(ctx, actor, tenantID, module, audit.EventModuleDeactivated, "allow", "tenant_request")
	return existing, nil
}

// ListActivations returns every activation row for the tenant.
func (s *Service) ListActivations(ctx context.Context, tenantID id.TenantID) ([]models.ModuleActivation, error) {
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	rows, err := s.activations.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list activations")
	}
	return rows, nil
}

// RecommendedModules returns the catalog recommendations for the
// tenant's business category.
func (s *Service) RecommendedModules(ctx context.Context, tenantID id.TenantID) ([]catalog.Recommendation, error) {
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	category, err := s.registry.Category(tenant.BusinessCategory)
	if err != nil {
		return nil, err
	}
	return category.Recommended, nil
}

// eligibleModules mirrors the entitlement resolver's reach rule
// without requiring an enabled tenant: package contents when a package
// is assigned, the whole catalog otherwise.
func (s *Service) eligibleModules(ctx context.Context, tenant *models.Tenant) (map[id.ModuleCode]struct{}, error) {
	eligible := make(map[id.ModuleCode]struct{})
	if tenant.PackageID.IsNil() {
		for _, m := range s.registry.Modules() {
			eligible[m.Code] = struct{}{}
		}
		return eligible, nil
	}
	pkg, err := s.loadPackage(ctx, tenant.PackageID)
	if err != nil {
		return nil, err
	}
	for _, code := range pkg.ModuleCodes {
		eligible[code] = struct{}{}
	}
	eligible[catalog.ModuleSettings] = struct{}{}
	return eligible, nil
}
