// Package entitlement resolves which modules a tenant may use and how
// far it may grow. The answer folds together subscription status,
// package contents and the tenant's own module activations. Permission
// checks and quota enforcement both sit on top of this resolver, so it
// is the single place lifecycle state turns into capability.
package entitlement

import (
	"context"
	"errors"
	"log/slog"

	"vendo/internal/catalog"
	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

// Trial quotas apply while a tenant has no package.
const (
	TrialMaxUsers    = 2
	TrialMaxBranches = 1
)

type TenantSource interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

type PackageSource interface {
	FindByID(ctx context.Context, packageID id.PackageID) (*models.SubscriptionPackage, error)
}

type ActivationSource interface {
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.ModuleActivation, error)
}

// Counter reports current resource usage. User and branch stores both
// satisfy it.
type Counter interface {
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// Snapshot is the tenant's effective capability at one point in time.
// Frozen snapshots belong to disabled tenants: no modules, and quotas
// clamped to current usage so nothing new can be created.
type Snapshot struct {
	TenantID    id.TenantID
	Status      models.SubscriptionStatus
	Modules     map[id.ModuleCode]struct{}
	MaxUsers    int
	MaxBranches int
	Frozen      bool
}

// HasModule reports whether the module is effective for the tenant.
func (s *Snapshot) HasModule(code id.ModuleCode) bool {
	_, ok := s.Modules[code]
	return ok
}

// Limit returns the growth ceiling for the resource kind.
func (s *Snapshot) Limit(kind id.ResourceKind) int {
	if kind == id.ResourceBranches {
		return s.MaxBranches
	}
	return s.MaxUsers
}

// Resolver computes entitlement snapshots from stored state. It holds
// no cache of its own, every call reads fresh.
type Resolver struct {
	tenants     TenantSource
	packages    PackageSource
	activations ActivationSource
	users       Counter
	branches    Counter
	registry    *catalog.Registry
	logger      *slog.Logger
}

func NewResolver(
	tenants TenantSource,
	packages PackageSource,
	activations ActivationSource,
	users Counter,
	branches Counter,
	registry *catalog.Registry,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		tenants:     tenants,
		packages:    packages,
		activations: activations,
		users:       users,
		branches:    branches,
		registry:    registry,
		logger:      logger.With("component", "entitlement_resolver"),
	}
}

// Resolve builds the current snapshot for a tenant.
//
// A module is effective only when the tenant activated it and either
// the package bundles it or the platform owner granted it outside the
// package. Eligibility alone is never enough, activation is an
// explicit opt in.
func (r *Resolver) Resolve(ctx context.Context, tenantID id.TenantID) (*Snapshot, error) {
	tenant, err := r.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load tenant")
	}

	if !tenant.Status.Enabled() {
		return r.frozenSnapshot(ctx, tenant)
	}

	eligible, maxUsers, maxBranches, err := r.eligibility(ctx, tenant)
	if err != nil {
		return nil, err
	}

	activations, err := r.activations.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load module activations")
	}

	effective := make(map[id.ModuleCode]struct{})
	for _, a := range activations {
		if a.Status != models.ActivationActive {
			continue
		}
		if !r.registry.Has(a.Module) {
			// Stale row referencing a retired module. Skip it rather
			// than granting access to something that no longer exists.
			r.logger.Warn("activation references unknown module",
				"tenant_id", tenantID.String(), "module", string(a.Module))
			continue
		}
		if _, ok := eligible[a.Module]; ok || a.OwnerGranted {
			effective[a.Module] = struct{}{}
		}
	}

	return &Snapshot{
		TenantID:    tenantID,
		Status:      tenant.Status,
		Modules:     effective,
		MaxUsers:    maxUsers,
		MaxBranches: maxBranches,
	}, nil
}

// eligibility returns the modules the subscription could grant and the
// growth quotas. A trial without a package may try the whole catalog
// under trial quotas.
func (r *Resolver) eligibility(ctx context.Context, tenant *models.Tenant) (map[id.ModuleCode]struct{}, int, int, error) {
	if tenant.PackageID.IsNil() {
		eligible := make(map[id.ModuleCode]struct{})
		for _, m := range r.registry.Modules() {
			eligible[m.Code] = struct{}{}
		}
		return eligible, TrialMaxUsers, TrialMaxBranches, nil
	}

	pkg, err := r.packages.FindByID(ctx, tenant.PackageID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, 0, 0, dErrors.New(dErrors.CodeInvariantViolation, "tenant references missing package")
		}
		return nil, 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "load package")
	}
	eligible := make(map[id.ModuleCode]struct{}, len(pkg.ModuleCodes)+1)
	for _, code := range pkg.ModuleCodes {
		eligible[code] = struct{}{}
	}
	// Settings rides along with every package so the tenant admin can
	// always manage the tenant.
	eligible[catalog.ModuleSettings] = struct{}{}
	return eligible, pkg.MaxUsers, pkg.MaxBranches, nil
}

// frozenSnapshot clamps quotas at current usage so a disabled tenant
// keeps its data but cannot grow.
func (r *Resolver) frozenSnapshot(ctx context.Context, tenant *models.Tenant) (*Snapshot, error) {
	userCount, err := r.users.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count users")
	}
	branchCount, err := r.branches.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count branches")
	}
	return &Snapshot{
		TenantID:    tenant.ID,
		Status:      tenant.Status,
		Modules:     map[id.ModuleCode]struct{}{},
		MaxUsers:    userCount,
		MaxBranches: branchCount,
		Frozen:      true,
	}, nil
}
