package domain

import (
	dErrors "vendo/pkg/domain-errors"
)

// Role is the closed set of roles a user can hold. The set is fixed at compile
// time; tenant data never introduces new roles.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleTenantAdmin     Role = "tenant_admin"
	RoleSupervisor      Role = "supervisor"
	RoleManager         Role = "manager"
	RoleAccountant      Role = "accountant"
	RoleAuditor         Role = "auditor"
	RoleStockController Role = "stock_controller"
	RoleCashier         Role = "cashier"
)

// roleTiers orders roles by privilege, highest first. Used for comparisons
// such as "may actor manage target"; it carries no permission semantics of
// its own.
var roleTiers = map[Role]int{
	RoleSuperAdmin:      0,
	RoleTenantAdmin:     1,
	RoleSupervisor:      2,
	RoleManager:         3,
	RoleAccountant:      4,
	RoleAuditor:         5,
	RoleStockController: 6,
	RoleCashier:         7,
}

// Roles lists every known role in privilege order.
func Roles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleTenantAdmin,
		RoleSupervisor,
		RoleManager,
		RoleAccountant,
		RoleAuditor,
		RoleStockController,
		RoleCashier,
	}
}

// ParseRole validates a role string at trust boundaries.
//
// Errors: returns CodeUnknownRole for anything outside the closed set. This is
// a configuration error, not a permission denial, and callers must treat it as
// a data bug rather than silently denying.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleTiers[r]; !ok {
		return "", dErrors.New(dErrors.CodeUnknownRole, "unknown role: "+s)
	}
	return r, nil
}

// Tier returns the privilege tier of the role, lower values are more
// privileged. Unknown roles report the lowest privilege.
func (r Role) Tier() int {
	if tier, ok := roleTiers[r]; ok {
		return tier
	}
	return len(roleTiers)
}

// Outranks reports whether r sits in a strictly higher privilege tier than other.
func (r Role) Outranks(other Role) bool {
	return r.Tier() < other.Tier()
}

func (r Role) String() string { return string(r) }
