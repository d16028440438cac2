package table

import (
	"vendo/internal/catalog"
	"vendo/internal/policy/models"
	id "vendo/pkg/domain"
)

// DefaultGrants is the shipped role policy. Seed data and the postgres
// role_default_grants table are initialized from these rows; the memory
// store serves them directly in demo mode.
//
// The shape follows role tiers: tenant_admin gets everything, line
// managers get their operational modules, cashier is view-plus-create
// on the point of sale only, auditor is read-only everywhere it can see.
func DefaultGrants() []models.RoleGrant {
	all := id.Actions()
	view := []id.Action{id.ActionView}
	operate := []id.Action{id.ActionView, id.ActionCreate, id.ActionUpdate}

	var rows []models.RoleGrant
	grant := func(role id.Role, module id.ModuleCode, actions []id.Action) {
		for _, a := range actions {
			rows = append(rows, models.RoleGrant{Role: role, Module: module, Action: a, Allowed: true})
		}
	}

	for _, m := range catalog.DefaultModules() {
		grant(id.RoleTenantAdmin, m.Code, all)
	}

	grant(id.RoleSupervisor, catalog.ModulePOS, all)
	grant(id.RoleSupervisor, catalog.ModuleProducts, operate)
	grant(id.RoleSupervisor, catalog.ModuleInventory, operate)
	grant(id.RoleSupervisor, catalog.ModuleCustomers, operate)
	grant(id.RoleSupervisor, catalog.ModuleReports, view)
	grant(id.RoleSupervisor, catalog.ModuleHR, view)

	grant(id.RoleManager, catalog.ModulePOS, operate)
	grant(id.RoleManager, catalog.ModuleProducts, operate)
	grant(id.RoleManager, catalog.ModuleInventory, operate)
	grant(id.RoleManager, catalog.ModulePurchasing, operate)
	grant(id.RoleManager, catalog.ModuleCustomers, operate)
	grant(id.RoleManager, catalog.ModuleSuppliers, operate)
	grant(id.RoleManager, catalog.ModuleReports, view)

	grant(id.RoleAccountant, catalog.ModuleAccounting, operate)
	grant(id.RoleAccountant, catalog.ModulePurchasing, view)
	grant(id.RoleAccountant, catalog.ModuleReports, view)
	grant(id.RoleAccountant, catalog.ModulePOS, view)

	grant(id.RoleAuditor, catalog.ModulePOS, view)
	grant(id.RoleAuditor, catalog.ModuleProducts, view)
	grant(id.RoleAuditor, catalog.ModuleInventory, view)
	grant(id.RoleAuditor, catalog.ModulePurchasing, view)
	grant(id.RoleAuditor, catalog.ModuleAccounting, view)
	grant(id.RoleAuditor, catalog.ModuleReports, view)

	grant(id.RoleStockController, catalog.ModuleInventory, all)
	grant(id.RoleStockController, catalog.ModuleProducts, view)
	grant(id.RoleStockController, catalog.ModulePurchasing, operate)
	grant(id.RoleStockController, catalog.ModuleSuppliers, view)

	grant(id.RoleCashier, catalog.ModulePOS, []id.Action{id.ActionView, id.ActionCreate})
	grant(id.RoleCashier, catalog.ModuleProducts, view)
	grant(id.RoleCashier, catalog.ModuleCustomers, []id.Action{id.ActionView, id.ActionCreate})

	return rows
}
