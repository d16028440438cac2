package activation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

func TestMemoryStoreUpsertAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, models.ModuleActivation{
		TenantID: tenantID, Module: "pos", Status: models.ActivationActive, UpdatedAt: now,
	}))

	a, err := store.Find(ctx, tenantID, "pos")
	require.NoError(t, err)
	assert.Equal(t, models.ActivationActive, a.Status)

	// Upsert replaces the row in place.
	require.NoError(t, store.Upsert(ctx, models.ModuleActivation{
		TenantID: tenantID, Module: "pos", Status: models.ActivationInactive, UpdatedAt: now,
	}))
	a, err = store.Find(ctx, tenantID, "pos")
	require.NoError(t, err)
	assert.Equal(t, models.ActivationInactive, a.Status)

	_, err = store.Find(ctx, tenantID, "inventory")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreDeactivateOutside(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	other := id.TenantID(uuid.New())
	now := time.Now().UTC()

	seed := []models.ModuleActivation{
		{TenantID: tenantID, Module: "pos", Status: models.ActivationActive},
		{TenantID: tenantID, Module: "inventory", Status: models.ActivationActive},
		{TenantID: tenantID, Module: "accounting", Status: models.ActivationActive, OwnerGranted: true},
		{TenantID: tenantID, Module: "reports", Status: models.ActivationInactive},
		{TenantID: other, Module: "inventory", Status: models.ActivationActive},
	}
	for _, a := range seed {
		require.NoError(t, store.Upsert(ctx, a))
	}

	keep := map[id.ModuleCode]struct{}{"pos": {}}
	flipped, err := store.DeactivateOutside(ctx, tenantID, keep, now)
	require.NoError(t, err)
	assert.Equal(t, []id.ModuleCode{"inventory"}, flipped)

	// Kept module untouched, owner grant survives, other tenant untouched.
	pos, _ := store.Find(ctx, tenantID, "pos")
	assert.Equal(t, models.ActivationActive, pos.Status)
	acc, _ := store.Find(ctx, tenantID, "accounting")
	assert.Equal(t, models.ActivationActive, acc.Status)
	otherInv, _ := store.Find(ctx, other, "inventory")
	assert.Equal(t, models.ActivationActive, otherInv.Status)

	inv, _ := store.Find(ctx, tenantID, "inventory")
	assert.Equal(t, models.ActivationInactive, inv.Status)
	assert.Equal(t, now, inv.UpdatedAt)
}
