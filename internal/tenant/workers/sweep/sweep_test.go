package sweep

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendo/internal/tenant/models"
	"vendo/internal/tenant/store/tenant"
	id "vendo/pkg/domain"
	"vendo/pkg/platform/audit"
)

type storeEmitter struct {
	store *audit.InMemoryStore
}

func (e storeEmitter) Emit(ctx context.Context, event audit.Event) error {
	return e.store.Append(ctx, event)
}

type recordingInvalidator struct {
	tenants []id.TenantID
}

func (r *recordingInvalidator) Invalidate(tenantID id.TenantID) {
	r.tenants = append(r.tenants, tenantID)
}

func seed(t *testing.T, store *tenant.MemoryStore, slug string, status models.SubscriptionStatus, trialEnd *time.Time) id.TenantID {
	t.Helper()
	tenantID := id.TenantID(uuid.New())
	require.NoError(t, store.Create(context.Background(), models.Tenant{
		ID: tenantID, Slug: slug, Name: slug, Status: status, TrialEndsAt: trialEnd,
	}))
	return tenantID
}

func TestRunOnceExpiresLapsedTrials(t *testing.T) {
	store := tenant.NewMemoryStore()
	auditStore := audit.NewInMemoryStore()
	invalidator := &recordingInvalidator{}
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	lapsed := seed(t, store, "lapsed", models.StatusTrialActive, &past)
	running := seed(t, store, "running", models.StatusTrialActive, &future)
	seed(t, store, "paid", models.StatusActive, nil)

	w := New(store,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithAuditPublisher(storeEmitter{store: auditStore}),
		WithMatrixInvalidator(invalidator),
	)

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Examined)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 0, res.Skipped)

	expired, err := store.FindByID(context.Background(), lapsed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, expired.Status)

	still, err := store.FindByID(context.Background(), running)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrialActive, still.Status)

	events := auditStore.Events()
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventTrialExpired), events[0].Action)
	assert.Equal(t, []id.TenantID{lapsed}, invalidator.tenants)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	store := tenant.NewMemoryStore()
	past := time.Now().UTC().Add(-time.Hour)
	seed(t, store, "lapsed", models.StatusTrialActive, &past)

	w := New(store, WithLogger(slog.New(slog.DiscardHandler)))

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)

	// A second run finds nothing to do.
	res, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Examined)
	assert.Equal(t, 0, res.Expired)
}

func TestRunOnceSkipsConcurrentlyUpgradedTenant(t *testing.T) {
	store := tenant.NewMemoryStore()
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)
	tenantID := seed(t, store, "upgrading", models.StatusTrialActive, &past)

	// Simulate an upgrade that lands between listing and expiry by
	// wrapping the store: on first FindByID the tenant flips to active.
	upgrading := &upgradeOnRead{MemoryStore: store, tenantID: tenantID}

	w := New(upgrading, WithLogger(slog.New(slog.DiscardHandler)))
	res, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Examined)
	assert.Equal(t, 0, res.Expired)
	assert.Equal(t, 1, res.Skipped)

	current, err := store.FindByID(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, current.Status)
}

type upgradeOnRead struct {
	*tenant.MemoryStore
	tenantID id.TenantID
	upgraded bool
}

func (u *upgradeOnRead) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if !u.upgraded && tenantID == u.tenantID {
		u.upgraded = true
		current, err := u.MemoryStore.FindByID(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		expected := current.Status
		current.Status = models.StatusActive
		current.PackageID = id.PackageID(uuid.New())
		current.TrialEndsAt = nil
		if err := u.MemoryStore.Update(ctx, *current, expected); err != nil {
			return nil, err
		}
	}
	return u.MemoryStore.FindByID(ctx, tenantID)
}
