package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendo/internal/catalog"
	"vendo/internal/policy/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

func newRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry(catalog.DefaultModules(), catalog.DefaultCategories())
	require.NoError(t, err)
	return reg
}

func TestDefaultGrantsBuild(t *testing.T) {
	tbl, err := New(DefaultGrants(), newRegistry(t))
	require.NoError(t, err)

	assert.True(t, tbl.Allows(id.RoleTenantAdmin, catalog.ModuleAccounting, id.ActionDelete))
	assert.True(t, tbl.Allows(id.RoleCashier, catalog.ModulePOS, id.ActionCreate))
	assert.False(t, tbl.Allows(id.RoleCashier, catalog.ModulePOS, id.ActionDelete))
	assert.False(t, tbl.Allows(id.RoleCashier, catalog.ModuleAccounting, id.ActionView))
	assert.True(t, tbl.Allows(id.RoleAuditor, catalog.ModuleAccounting, id.ActionView))
	assert.False(t, tbl.Allows(id.RoleAuditor, catalog.ModuleAccounting, id.ActionUpdate))
}

func TestSuperAdminImplicitAllow(t *testing.T) {
	// No seed rows at all: super admin still passes, everyone else is denied.
	tbl, err := New(nil, newRegistry(t))
	require.NoError(t, err)

	assert.True(t, tbl.Allows(id.RoleSuperAdmin, catalog.ModulePOS, id.ActionDelete))
	assert.False(t, tbl.Allows(id.RoleTenantAdmin, catalog.ModulePOS, id.ActionView))
}

func TestAbsentRowIsDenyNotError(t *testing.T) {
	tbl, err := New([]models.RoleGrant{
		{Role: id.RoleManager, Module: catalog.ModulePOS, Action: id.ActionView, Allowed: true},
	}, newRegistry(t))
	require.NoError(t, err)

	assert.True(t, tbl.Allows(id.RoleManager, catalog.ModulePOS, id.ActionView))
	assert.False(t, tbl.Allows(id.RoleManager, catalog.ModulePOS, id.ActionUpdate))
	assert.False(t, tbl.Allows(id.RoleManager, catalog.ModuleHR, id.ActionView))
}

func TestNewRejectsUnknownRole(t *testing.T) {
	_, err := New([]models.RoleGrant{
		{Role: id.Role("janitor"), Module: catalog.ModulePOS, Action: id.ActionView, Allowed: true},
	}, newRegistry(t))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownRole))
}

func TestNewRejectsUnknownModule(t *testing.T) {
	_, err := New([]models.RoleGrant{
		{Role: id.RoleManager, Module: id.ModuleCode("time-travel"), Action: id.ActionView, Allowed: true},
	}, newRegistry(t))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownModule))
}

func TestExplicitDenyRow(t *testing.T) {
	tbl, err := New([]models.RoleGrant{
		{Role: id.RoleManager, Module: catalog.ModulePOS, Action: id.ActionDelete, Allowed: false},
		{Role: id.RoleManager, Module: catalog.ModulePOS, Action: id.ActionView, Allowed: true},
	}, newRegistry(t))
	require.NoError(t, err)

	assert.False(t, tbl.Allows(id.RoleManager, catalog.ModulePOS, id.ActionDelete))
	assert.True(t, tbl.Allows(id.RoleManager, catalog.ModulePOS, id.ActionView))
}
