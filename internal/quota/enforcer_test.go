package quota

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendo/internal/catalog"
	"vendo/internal/entitlement"
	"vendo/internal/tenant/models"
	"vendo/internal/tenant/store/activation"
	"vendo/internal/tenant/store/branch"
	"vendo/internal/tenant/store/packages"
	"vendo/internal/tenant/store/tenant"
	"vendo/internal/tenant/store/user"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

type harness struct {
	tenantID id.TenantID
	users    *user.MemoryStore
	branches *branch.MemoryStore
	enforcer *Enforcer
}

func newHarness(t *testing.T, maxUsers, maxBranches int) *harness {
	t.Helper()
	ctx := context.Background()
	reg, err := catalog.NewRegistry(catalog.DefaultModules(), nil)
	require.NoError(t, err)

	tenants := tenant.NewMemoryStore()
	pkgs := packages.NewMemoryStore()
	activations := activation.NewMemoryStore()
	users := user.NewMemoryStore()
	branches := branch.NewMemoryStore()

	pkgID := id.PackageID(uuid.New())
	require.NoError(t, pkgs.Create(ctx, models.SubscriptionPackage{
		ID: pkgID, Code: "standard", Name: "Standard",
		MaxUsers: maxUsers, MaxBranches: maxBranches,
		ModuleCodes: []id.ModuleCode{catalog.ModulePOS},
	}))

	tenantID := id.TenantID(uuid.New())
	require.NoError(t, tenants.Create(ctx, models.Tenant{
		ID: tenantID, Slug: "acme", Name: "Acme", Status: models.StatusActive, PackageID: pkgID,
	}))

	logger := slog.New(slog.DiscardHandler)
	resolver := entitlement.NewResolver(tenants, pkgs, activations, users, branches, reg, logger)
	return &harness{
		tenantID: tenantID,
		users:    users,
		branches: branches,
		enforcer: NewEnforcer(resolver, users, branches, WithLogger(logger)),
	}
}

func (h *harness) createUser(ctx context.Context) error {
	return h.enforcer.WithReservation(ctx, h.tenantID, id.ResourceUsers, func(ctx context.Context) error {
		return h.users.Create(ctx, models.User{
			ID: id.UserID(uuid.New()), TenantID: h.tenantID,
			Email: uuid.NewString() + "@acme.test", Name: "staff",
			Role: id.RoleCashier, Active: true,
			CreatedAt: time.Now().UTC(),
		})
	})
}

func TestWithReservationUnderLimit(t *testing.T) {
	h := newHarness(t, 3, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.createUser(ctx))
	}
	err := h.createUser(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeQuotaExceeded))

	count, err := h.users.CountByTenant(ctx, h.tenantID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestWithReservationConcurrentNeverOvershoots(t *testing.T) {
	const limit = 5
	const racers = 40

	h := newHarness(t, limit, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- h.createUser(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
		}
	}
	assert.Equal(t, limit, succeeded)

	count, err := h.users.CountByTenant(ctx, h.tenantID)
	require.NoError(t, err)
	assert.Equal(t, limit, count)
}

func TestWithReservationAtLimitAllRacersDenied(t *testing.T) {
	const limit = 2
	h := newHarness(t, limit, 1)
	ctx := context.Background()

	for i := 0; i < limit; i++ {
		require.NoError(t, h.createUser(ctx))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- h.createUser(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.True(t, dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	}
}

func TestCheckIsAdvisory(t *testing.T) {
	h := newHarness(t, 1, 1)
	ctx := context.Background()

	decision, err := h.enforcer.Check(ctx, h.tenantID, id.ResourceUsers)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 0, decision.Current)
	assert.Equal(t, 1, decision.Limit)

	require.NoError(t, h.createUser(ctx))

	decision, err = h.enforcer.Check(ctx, h.tenantID, id.ResourceUsers)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1, decision.Current)
}

func TestCreateFailureDoesNotConsumeSlot(t *testing.T) {
	h := newHarness(t, 1, 1)
	ctx := context.Background()

	failing := h.enforcer.WithReservation(ctx, h.tenantID, id.ResourceUsers, func(context.Context) error {
		return dErrors.New(dErrors.CodeInternal, "storage hiccup")
	})
	require.Error(t, failing)

	require.NoError(t, h.createUser(ctx))
}
