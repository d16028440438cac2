package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"vendo/internal/catalog"
	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/audit"
)

// Signup registers a tenant in trial_pending state. Settings and the
// required modules for the business category are pre-activated so the
// tenant is usable the moment its trial is approved.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.Tenant, error) {
	category, err := s.registry.Category(req.BusinessCategory)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "unknown business category")
	}

	now := time.Now().UTC()
	tenant := models.Tenant{
		ID:               id.TenantID(uuid.New()),
		Slug:             req.Slug,
		Name:             req.Name,
		BusinessCategory: category.Code,
		Status:           models.StatusTrialPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "slug is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create tenant")
	}

	// Settings is always pre-activated: without it the tenant admin
	// could not manage the tenant at all.
	preActivate := []id.ModuleCode{catalog.ModuleSettings}
	for _, rec := range category.Recommended {
		if rec.Required && rec.Module != catalog.ModuleSettings {
			preActivate = append(preActivate, rec.Module)
		}
	}
	for _, module := range preActivate {
		err := s.activations.Upsert(ctx, models.ModuleActivation{
			TenantID:  tenant.ID,
			Module:    module,
			Status:    models.ActivationActive,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pre-activate module")
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementSignups()
	}
	s.emitAudit(ctx, id.UserID{}, tenant.ID, "", audit.EventTenantSignedUp, "allow", "category:"+category.Code)
	s.logger.InfoContext(ctx, "tenant signed up",
		"tenant_id", tenant.ID.String(), "slug", tenant.Slug, "category", category.Code)
	return &tenant, nil
}

// ApproveTrial starts the trial window for a pending tenant.
func (s *Service) ApproveTrial(ctx context.Context, actor id.UserID, tenantID id.TenantID) (*models.Tenant, error) {
	return s.transition(ctx, actor, tenantID, audit.EventTrialApproved, func(t *models.Tenant, now time.Time) error {
		return t.ApproveTrial(now, s.trialDuration)
	})
}

// Upgrade converts a trial to a paid subscription on the given package.
func (s *Service) Upgrade(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.UpgradeRequest) (*models.Tenant, error) {
	packageID, err := id.ParsePackageID(req.PackageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadPackage(ctx, packageID); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, tenantID, audit.EventTenantUpgraded, func(t *models.Tenant, now time.Time) error {
		return t.Upgrade(now, packageID, req.PaymentRef)
	})
}

// Suspend pauses an active tenant.
func (s *Service) Suspend(ctx context.Context, actor id.UserID, tenantID id.TenantID) (*models.Tenant, error) {
	return s.transition(ctx, actor, tenantID, audit.EventTenantSuspended, func(t *models.Tenant, now time.Time) error {
		return t.Suspend(now)
	})
}

// Reactivate restores a suspended or expired tenant.
func (s *Service) Reactivate(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.ReactivateRequest) (*models.Tenant, error) {
	var packageID id.PackageID
	if req.PackageID != "" {
		var err error
		if packageID, err = id.ParsePackageID(req.PackageID); err != nil {
			return nil, err
		}
		if _, err := s.loadPackage(ctx, packageID); err != nil {
			return nil, err
		}
	}
	return s.transition(ctx, actor, tenantID, audit.EventTenantActivated, func(t *models.Tenant, now time.Time) error {
		return t.Reactivate(now, packageID, req.PaymentRef)
	})
}

// AssignPackage sets or changes a tenant's package without touching
// its lifecycle state. On a downgrade, activations the new package no
// longer covers flip to inactive; owner-granted activations survive.
func (s *Service) AssignPackage(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.AssignPackageRequest) (*models.Tenant, error) {
	packageID, err := id.ParsePackageID(req.PackageID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.loadPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expected := tenant.Status
	tenant.PackageID = packageID
	tenant.UpdatedAt = now
	if err := s.update(ctx, *tenant, expected); err != nil {
		return nil, err
	}

	// Settings stays on regardless of package so the tenant admin is
	// never locked out of managing the tenant.
	keep := make(map[id.ModuleCode]struct{}, len(pkg.ModuleCodes)+1)
	keep[catalog.ModuleSettings] = struct{}{}
	for _, code := range pkg.ModuleCodes {
		keep[code] = struct{}{}
	}
	flipped, err := s.activations.DeactivateOutside(ctx, tenantID, keep, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deactivate modules outside package")
	}

	s.invalidate(tenantID)
	s.emitAudit(ctx, actor, tenantID, "", audit.EventPackageAssigned, "allow", "package:"+pkg.Code)
	for _, module := range flipped {
		if s.metrics != nil {
			s.metrics.IncrementModuleActivations("downgraded")
		}
		s.emitAudit(ctx, actor, tenantID, module, audit.EventModuleDeactivated, "allow", "package_downgrade")
	}
	s.logger.InfoContext(ctx, "package assigned",
		"tenant_id", tenantID.String(), "package", pkg.Code, "modules_deactivated", len(flipped))
	return tenant, nil
}

// transition loads, mutates and compare-and-swaps a tenant through one
// lifecycle change.
func (s *Service) transition(
	ctx context.Context,
	actor id.UserID,
	tenantID id.TenantID,
	event audit.AuditEvent,
	mutate func(t *models.Tenant, now time.Time) error,
) (*models.Tenant, error) {
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expected := tenant.Status
	if err := mutate(tenant, now); err != nil {
		return nil, err
	}
	if err := s.update(ctx, *tenant, expected); err != nil {
		return nil, err
	}

	s.invalidate(tenantID)
	if s.metrics != nil {
		s.metrics.IncrementTransitions(string(tenant.Status))
	}
	s.emitAudit(ctx, actor, tenantID, "", event, "allow", "status:"+string(tenant.Status))
	s.logger.InfoContext(ctx, "tenant lifecycle transition",
		"tenant_id", tenantID.String(), "from", string(expected), "to", string(tenant.Status))
	return tenant, nil
}

func (s *Service) loadTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load tenant")
	}
	return tenant, nil
}

func (s *Service) loadPackage(ctx context.Context, packageID id.PackageID) (*models.SubscriptionPackage, error) {
	pkg, err := s.packages.FindByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown package")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load package")
	}
	return pkg, nil
}

func (s *Service) update(ctx context.Context, t models.Tenant, expected models.SubscriptionStatus) error {
	if err := s.tenants.Update(ctx, t, expected); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrStaleState):
			return dErrors.New(dErrors.CodeConflict, "tenant was modified concurrently")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "tenant not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "update tenant")
		}
	}
	return nil
}
