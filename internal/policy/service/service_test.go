package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendo/internal/catalog"
	"vendo/internal/entitlement"
	"vendo/internal/policy/models"
	"vendo/internal/policy/store/override"
	"vendo/internal/policy/table"
	tenantmodels "vendo/internal/tenant/models"
	"vendo/internal/tenant/store/activation"
	"vendo/internal/tenant/store/branch"
	"vendo/internal/tenant/store/packages"
	"vendo/internal/tenant/store/tenant"
	"vendo/internal/tenant/store/user"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/audit"
)

type fixture struct {
	tenants     *tenant.MemoryStore
	packages    *packages.MemoryStore
	activations *activation.MemoryStore
	users       *user.MemoryStore
	overrides   *override.MemoryStore
	auditStore  *audit.InMemoryStore
	svc         *Service
	tenantID    id.TenantID
}

// newFixture builds a tenant on a package bundling pos and inventory,
// with both modules activated.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	reg, err := catalog.NewRegistry(catalog.DefaultModules(), catalog.DefaultCategories())
	require.NoError(t, err)
	tbl, err := table.New(table.DefaultGrants(), reg)
	require.NoError(t, err)

	f := &fixture{
		tenants:     tenant.NewMemoryStore(),
		packages:    packages.NewMemoryStore(),
		activations: activation.NewMemoryStore(),
		users:       user.NewMemoryStore(),
		overrides:   override.NewMemoryStore(),
		auditStore:  audit.NewInMemoryStore(),
	}

	pkgID := id.PackageID(uuid.New())
	require.NoError(t, f.packages.Create(ctx, tenantmodels.SubscriptionPackage{
		ID: pkgID, Code: "standard", Name: "Standard",
		MaxUsers: 10, MaxBranches: 3,
		ModuleCodes: []id.ModuleCode{catalog.ModulePOS, catalog.ModuleInventory},
	}))

	f.tenantID = id.TenantID(uuid.New())
	require.NoError(t, f.tenants.Create(ctx, tenantmodels.Tenant{
		ID: f.tenantID, Slug: "acme", Name: "Acme", Status: tenantmodels.StatusActive, PackageID: pkgID,
	}))
	for _, m := range []id.ModuleCode{catalog.ModulePOS, catalog.ModuleInventory} {
		require.NoError(t, f.activations.Upsert(ctx, tenantmodels.ModuleActivation{
			TenantID: f.tenantID, Module: m, Status: tenantmodels.ActivationActive, UpdatedAt: time.Now().UTC(),
		}))
	}

	logger := slog.New(slog.DiscardHandler)
	resolver := entitlement.NewResolver(f.tenants, f.packages, f.activations, f.users,
		branch.NewMemoryStore(), reg, logger)
	f.svc = New(f.users, f.overrides, resolver, tbl, reg,
		WithLogger(logger),
		WithAuditPublisher(auditStoreEmitter{store: f.auditStore}),
	)
	return f
}

// auditStoreEmitter adapts the in-memory audit store to the publisher
// interface for tests that assert on emitted events.
type auditStoreEmitter struct {
	store *audit.InMemoryStore
}

func (e auditStoreEmitter) Emit(ctx context.Context, event audit.Event) error {
	return e.store.Append(ctx, event)
}

func (f *fixture) addUser(t *testing.T, role id.Role, active bool) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	tenantID := f.tenantID
	if role == id.RoleSuperAdmin {
		tenantID = id.TenantID{}
	}
	require.NoError(t, f.users.Create(context.Background(), tenantmodels.User{
		ID: userID, TenantID: tenantID, Email: uuid.NewString() + "@acme.test",
		Name: "staff", Role: role, Active: active,
	}))
	return userID
}

func (f *fixture) can(t *testing.T, userID id.UserID, module id.ModuleCode, action id.Action) models.Decision {
	t.Helper()
	decision, err := f.svc.Can(context.Background(), CanRequest{
		TenantID: f.tenantID, UserID: userID, Module: module, Action: action,
	})
	require.NoError(t, err)
	return decision
}

func TestCanRoleGrant(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(t, id.RoleCashier, true)

	d := f.can(t, cashier, catalog.ModulePOS, id.ActionCreate)
	assert.True(t, d.Allowed)
	assert.Equal(t, models.ReasonRoleGrant, d.Reason)
}

func TestCanDenyByDefault(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(t, id.RoleCashier, true)

	// POS is entitled, but the cashier role has no delete grant.
	d := f.can(t, cashier, catalog.ModulePOS, id.ActionDelete)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonNoRoleGrant, d.Reason)
}

func TestCanEntitlementGatesPrivilege(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)

	// Tenant admin has a role grant for accounting, but the package
	// does not include it.
	d := f.can(t, admin, catalog.ModuleAccounting, id.ActionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonModuleNotEntitled, d.Reason)
}

func TestCanInactiveUserDeniedBeforeAnythingElse(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, false)

	ctx := context.Background()
	_, err := f.svc.SetOverride(ctx, admin, models.Override{
		TenantID: f.tenantID, UserID: admin, Module: catalog.ModulePOS, Action: id.ActionView, Allowed: true,
	})
	require.NoError(t, err)

	d := f.can(t, admin, catalog.ModulePOS, id.ActionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonUserInactive, d.Reason)
}

func TestCanOverrideGrantBeyondRole(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	cashier := f.addUser(t, id.RoleCashier, true)

	_, err := f.svc.SetOverride(context.Background(), admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModuleInventory, Action: id.ActionView, Allowed: true,
	})
	require.NoError(t, err)

	d := f.can(t, cashier, catalog.ModuleInventory, id.ActionView)
	assert.True(t, d.Allowed)
	assert.Equal(t, models.ReasonOverrideGrant, d.Reason)
}

func TestCanOverrideRevokesRoleGrant(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	cashier := f.addUser(t, id.RoleCashier, true)

	_, err := f.svc.SetOverride(context.Background(), admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModulePOS, Action: id.ActionCreate, Allowed: false,
	})
	require.NoError(t, err)

	d := f.can(t, cashier, catalog.ModulePOS, id.ActionCreate)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonExplicitlyRevoked, d.Reason)
}

func TestCanOverrideCannotBypassEntitlement(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	cashier := f.addUser(t, id.RoleCashier, true)

	// Granting an override on a module outside the package changes
	// nothing: entitlement is checked first.
	_, err := f.svc.SetOverride(context.Background(), admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModuleAccounting, Action: id.ActionView, Allowed: true,
	})
	require.NoError(t, err)

	d := f.can(t, cashier, catalog.ModuleAccounting, id.ActionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonModuleNotEntitled, d.Reason)
}

func TestCanSuperAdminBypassesEverything(t *testing.T) {
	f := newFixture(t)
	operator := f.addUser(t, id.RoleSuperAdmin, true)

	d := f.can(t, operator, catalog.ModuleAccounting, id.ActionDelete)
	assert.True(t, d.Allowed)
	assert.Equal(t, models.ReasonSuperAdmin, d.Reason)
}

func TestCanRemoveOverrideRestoresDefault(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	cashier := f.addUser(t, id.RoleCashier, true)

	ctx := context.Background()
	o, err := f.svc.SetOverride(ctx, admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModulePOS, Action: id.ActionCreate, Allowed: false,
	})
	require.NoError(t, err)
	assert.False(t, f.can(t, cashier, catalog.ModulePOS, id.ActionCreate).Allowed)

	require.NoError(t, f.svc.RemoveOverride(ctx, admin, f.tenantID, o.Key()))

	d := f.can(t, cashier, catalog.ModulePOS, id.ActionCreate)
	assert.True(t, d.Allowed)
	assert.Equal(t, models.ReasonRoleGrant, d.Reason)
}

func TestCanUnknownModule(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(t, id.RoleCashier, true)

	_, err := f.svc.Can(context.Background(), CanRequest{
		TenantID: f.tenantID, UserID: cashier, Module: "warp-drive", Action: id.ActionView,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownModule))
}

func TestCanUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Can(context.Background(), CanRequest{
		TenantID: f.tenantID, UserID: id.UserID(uuid.New()), Module: catalog.ModulePOS, Action: id.ActionView,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCanUserFromAnotherTenant(t *testing.T) {
	f := newFixture(t)
	stranger := id.UserID(uuid.New())
	require.NoError(t, f.users.Create(context.Background(), tenantmodels.User{
		ID: stranger, TenantID: id.TenantID(uuid.New()),
		Email: "stranger@other.test", Name: "s", Role: id.RoleCashier, Active: true,
	}))

	_, err := f.svc.Can(context.Background(), CanRequest{
		TenantID: f.tenantID, UserID: stranger, Module: catalog.ModulePOS, Action: id.ActionView,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestAuthorizeAuditsDenials(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(t, id.RoleCashier, true)

	err := f.svc.Authorize(context.Background(), CanRequest{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModulePOS, Action: id.ActionDelete,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	events := f.auditStore.Events()
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventPermissionDenied), events[0].Action)
	assert.Equal(t, string(models.ReasonNoRoleGrant), events[0].Reason)

	// Allowed actions pass silently.
	require.NoError(t, f.svc.Authorize(context.Background(), CanRequest{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModulePOS, Action: id.ActionCreate,
	}))
	assert.Len(t, f.auditStore.Events(), 1)
}

func TestSetOverrideRejectsSuperAdminTarget(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	operator := f.addUser(t, id.RoleSuperAdmin, true)

	_, err := f.svc.SetOverride(context.Background(), admin, models.Override{
		TenantID: f.tenantID, UserID: operator, Module: catalog.ModulePOS, Action: id.ActionView, Allowed: false,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// The onboarding walkthrough: Standard package tenant, active, with a
// cashier. POS create allowed by role, accounting view not entitled,
// POS delete denied by default, and an explicit revoke wins over the
// role grant.
func TestCashierWalkthrough(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	cashier := f.addUser(t, id.RoleCashier, true)

	assert.Equal(t, models.ReasonRoleGrant, f.can(t, cashier, catalog.ModulePOS, id.ActionCreate).Reason)
	assert.Equal(t, models.ReasonModuleNotEntitled, f.can(t, cashier, catalog.ModuleAccounting, id.ActionView).Reason)
	assert.Equal(t, models.ReasonNoRoleGrant, f.can(t, cashier, catalog.ModulePOS, id.ActionDelete).Reason)

	_, err := f.svc.SetOverride(context.Background(), admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModulePOS, Action: id.ActionCreate, Allowed: false,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonExplicitlyRevoked, f.can(t, cashier, catalog.ModulePOS, id.ActionCreate).Reason)
}
