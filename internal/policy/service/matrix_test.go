package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendo/internal/catalog"
	"vendo/internal/policy/models"
	id "vendo/pkg/domain"
)

func TestMatrixCoversAllModulesAndActions(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, id.RoleTenantAdmin, true)
	f.addUser(t, id.RoleCashier, true)

	matrix, err := f.svc.Matrix(context.Background(), f.tenantID)
	require.NoError(t, err)

	require.Len(t, matrix.Users, 2)
	for _, grid := range matrix.Users {
		assert.Len(t, grid.Cells, len(catalog.DefaultModules()))
		for _, row := range grid.Cells {
			assert.Len(t, row, len(id.Actions()))
		}
	}
}

// Every matrix cell must agree with a live Can call made against the
// same stored state.
func TestMatrixAgreesWithCan(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	cashier := f.addUser(t, id.RoleCashier, true)
	f.addUser(t, id.RoleAuditor, false)

	_, err := f.svc.SetOverride(context.Background(), admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModuleInventory, Action: id.ActionView, Allowed: true,
	})
	require.NoError(t, err)
	_, err = f.svc.SetOverride(context.Background(), admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModulePOS, Action: id.ActionCreate, Allowed: false,
	})
	require.NoError(t, err)

	matrix, err := f.svc.Matrix(context.Background(), f.tenantID)
	require.NoError(t, err)

	for _, grid := range matrix.Users {
		for module, row := range grid.Cells {
			for action, cell := range row {
				live := f.can(t, grid.UserID, module, action)
				assert.Equal(t, live.Allowed, cell.Allowed,
					"user %s %s/%s", grid.UserID, module, action)
				assert.Equal(t, live.Reason, cell.Reason,
					"user %s %s/%s", grid.UserID, module, action)
			}
		}
	}
}

func TestMatrixCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, id.RoleTenantAdmin, true)
	cashier := f.addUser(t, id.RoleCashier, true)
	ctx := context.Background()

	first, err := f.svc.Matrix(ctx, f.tenantID)
	require.NoError(t, err)

	// Second read returns the same snapshot.
	second, err := f.svc.Matrix(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// An override write invalidates, the next read rebuilds.
	_, err = f.svc.SetOverride(ctx, admin, models.Override{
		TenantID: f.tenantID, UserID: cashier, Module: catalog.ModulePOS, Action: id.ActionCreate, Allowed: false,
	})
	require.NoError(t, err)

	third, err := f.svc.Matrix(ctx, f.tenantID)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	cell := findGrid(t, third, cashier).Cells[catalog.ModulePOS][id.ActionCreate]
	assert.False(t, cell.Allowed)
	assert.Equal(t, models.ReasonExplicitlyRevoked, cell.Reason)
}

func TestMatrixInactiveUserAllDenied(t *testing.T) {
	f := newFixture(t)
	dormant := f.addUser(t, id.RoleTenantAdmin, false)

	matrix, err := f.svc.Matrix(context.Background(), f.tenantID)
	require.NoError(t, err)

	grid := findGrid(t, matrix, dormant)
	for _, row := range grid.Cells {
		for _, cell := range row {
			assert.False(t, cell.Allowed)
			assert.Equal(t, models.ReasonUserInactive, cell.Reason)
		}
	}
}

func findGrid(t *testing.T, matrix *models.Matrix, userID id.UserID) models.UserGrid {
	t.Helper()
	for _, grid := range matrix.Users {
		if grid.UserID == userID {
			return grid
		}
	}
	t.Fatalf("user %s not in matrix", userID)
	return models.UserGrid{}
}
