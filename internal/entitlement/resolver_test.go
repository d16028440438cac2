package entitlement

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendo/internal/catalog"
	"vendo/internal/tenant/models"
	"vendo/internal/tenant/store/activation"
	"vendo/internal/tenant/store/branch"
	"vendo/internal/tenant/store/packages"
	"vendo/internal/tenant/store/tenant"
	"vendo/internal/tenant/store/user"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

type fixture struct {
	tenants     *tenant.MemoryStore
	packages    *packages.MemoryStore
	activations *activation.MemoryStore
	users       *user.MemoryStore
	branches    *branch.MemoryStore
	resolver    *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := catalog.NewRegistry(catalog.DefaultModules(), catalog.DefaultCategories())
	require.NoError(t, err)

	f := &fixture{
		tenants:     tenant.NewMemoryStore(),
		packages:    packages.NewMemoryStore(),
		activations: activation.NewMemoryStore(),
		users:       user.NewMemoryStore(),
		branches:    branch.NewMemoryStore(),
	}
	f.resolver = NewResolver(f.tenants, f.packages, f.activations, f.users, f.branches, reg,
		slog.New(slog.DiscardHandler))
	return f
}

func (f *fixture) addTenant(t *testing.T, status models.SubscriptionStatus, packageID id.PackageID) id.TenantID {
	t.Helper()
	tenantID := id.TenantID(uuid.New())
	require.NoError(t, f.tenants.Create(context.Background(), models.Tenant{
		ID: tenantID, Slug: uuid.NewString()[:8], Name: "t", Status: status, PackageID: packageID,
	}))
	return tenantID
}

func (f *fixture) addPackage(t *testing.T, maxUsers, maxBranches int, codes ...id.ModuleCode) id.PackageID {
	t.Helper()
	pkgID := id.PackageID(uuid.New())
	require.NoError(t, f.packages.Create(context.Background(), models.SubscriptionPackage{
		ID: pkgID, Code: uuid.NewString()[:8], Name: "pkg",
		MaxUsers: maxUsers, MaxBranches: maxBranches, ModuleCodes: codes,
	}))
	return pkgID
}

func (f *fixture) activate(t *testing.T, tenantID id.TenantID, module id.ModuleCode, ownerGranted bool) {
	t.Helper()
	require.NoError(t, f.activations.Upsert(context.Background(), models.ModuleActivation{
		TenantID: tenantID, Module: module, Status: models.ActivationActive,
		OwnerGranted: ownerGranted, UpdatedAt: time.Now().UTC(),
	}))
}

func TestResolveActiveTenantWithPackage(t *testing.T) {
	f := newFixture(t)
	pkgID := f.addPackage(t, 5, 2, catalog.ModulePOS, catalog.ModuleInventory)
	tenantID := f.addTenant(t, models.StatusActive, pkgID)
	f.activate(t, tenantID, catalog.ModulePOS, false)

	snap, err := f.resolver.Resolve(context.Background(), tenantID)
	require.NoError(t, err)

	assert.True(t, snap.HasModule(catalog.ModulePOS))
	// Bundled but never activated: opt in is explicit.
	assert.False(t, snap.HasModule(catalog.ModuleInventory))
	assert.Equal(t, 5, snap.MaxUsers)
	assert.Equal(t, 2, snap.MaxBranches)
	assert.False(t, snap.Frozen)
}

func TestResolveActivationOutsidePackageIneffective(t *testing.T) {
	f := newFixture(t)
	pkgID := f.addPackage(t, 5, 2, catalog.ModulePOS)
	tenantID := f.addTenant(t, models.StatusActive, pkgID)
	f.activate(t, tenantID, catalog.ModuleAccounting, false)

	snap, err := f.resolver.Resolve(context.Background(), tenantID)
	require.NoError(t, err)
	assert.False(t, snap.HasModule(catalog.ModuleAccounting))
}

func TestResolveOwnerGrantSurvivesPackage(t *testing.T) {
	f := newFixture(t)
	pkgID := f.addPackage(t, 5, 2, catalog.ModulePOS)
	tenantID := f.addTenant(t, models.StatusActive, pkgID)
	f.activate(t, tenantID, catalog.ModuleAccounting, true)

	snap, err := f.resolver.Resolve(context.Background(), tenantID)
	require.NoError(t, err)
	assert.True(t, snap.HasModule(catalog.ModuleAccounting))
}

func TestResolveTrialWithoutPackage(t *testing.T) {
	f := newFixture(t)
	tenantID := f.addTenant(t, models.StatusTrialActive, id.PackageID{})
	f.activate(t, tenantID, catalog.ModuleHR, false)

	snap, err := f.resolver.Resolve(context.Background(), tenantID)
	require.NoError(t, err)
	assert.True(t, snap.HasModule(catalog.ModuleHR))
	assert.Equal(t, TrialMaxUsers, snap.MaxUsers)
	assert.Equal(t, TrialMaxBranches, snap.MaxBranches)
}

func TestResolveSuspendedTenantIsFrozen(t *testing.T) {
	f := newFixture(t)
	pkgID := f.addPackage(t, 5, 2, catalog.ModulePOS)
	tenantID := f.addTenant(t, models.StatusSuspended, pkgID)
	f.activate(t, tenantID, catalog.ModulePOS, false)

	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, models.User{
		ID: id.UserID(uuid.New()), TenantID: tenantID, Email: "a@x.co", Role: id.RoleCashier, Active: true,
	}))
	require.NoError(t, f.branches.Create(ctx, models.Branch{
		ID: id.BranchID(uuid.New()), TenantID: tenantID, Name: "main",
	}))

	snap, err := f.resolver.Resolve(ctx, tenantID)
	require.NoError(t, err)

	// Activation rows are untouched, the snapshot is what collapses.
	assert.True(t, snap.Frozen)
	assert.Empty(t, snap.Modules)
	assert.Equal(t, 1, snap.MaxUsers)
	assert.Equal(t, 1, snap.MaxBranches)

	rows, err := f.activations.ListByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ActivationActive, rows[0].Status)
}

func TestResolveExpiredTenantIsFrozen(t *testing.T) {
	f := newFixture(t)
	tenantID := f.addTenant(t, models.StatusExpired, id.PackageID{})

	snap, err := f.resolver.Resolve(context.Background(), tenantID)
	require.NoError(t, err)
	assert.True(t, snap.Frozen)
	assert.Empty(t, snap.Modules)
	assert.Equal(t, 0, snap.MaxUsers)
}

func TestResolveUnknownTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.resolver.Resolve(context.Background(), id.TenantID(uuid.New()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestResolveMissingPackageIsInvariantViolation(t *testing.T) {
	f := newFixture(t)
	tenantID := f.addTenant(t, models.StatusActive, id.PackageID(uuid.New()))

	_, err := f.resolver.Resolve(context.Background(), tenantID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
