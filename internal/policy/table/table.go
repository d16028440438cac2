// Package table builds the immutable role policy table. The table is
// constructed once at startup from seed rows, validated against the
// module catalog, and injected into the resolver. It is never consulted
// as a mutable global and never changes after construction.
package table

import (
	"fmt"

	"vendo/internal/catalog"
	"vendo/internal/policy/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

type actionSet map[id.Action]bool

// Table answers the platform default question: may this role perform
// this action on this module, before tenant entitlement and per-user
// overrides are considered.
type Table struct {
	grants map[id.Role]map[id.ModuleCode]actionSet
}

// New validates rows against the closed role and action enums and the
// module catalog. Any unknown role or module in the seed data is a
// configuration error and construction fails loudly.
func New(rows []models.RoleGrant, registry *catalog.Registry) (*Table, error) {
	grants := make(map[id.Role]map[id.ModuleCode]actionSet)
	for _, row := range rows {
		if _, err := id.ParseRole(string(row.Role)); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnknownRole, fmt.Sprintf("role grant references unknown role %q", row.Role))
		}
		if err := registry.Validate(row.Module); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnknownModule, fmt.Sprintf("role grant for %q references unknown module %q", row.Role, row.Module))
		}
		if _, err := id.ParseAction(string(row.Action)); err != nil {
			return nil, err
		}
		byModule, ok := grants[row.Role]
		if !ok {
			byModule = make(map[id.ModuleCode]actionSet)
			grants[row.Role] = byModule
		}
		actions, ok := byModule[row.Module]
		if !ok {
			actions = make(actionSet)
			byModule[row.Module] = actions
		}
		actions[row.Action] = row.Allowed
	}
	return &Table{grants: grants}, nil
}

// Allows returns the default answer for role on module and action.
// Super admin is allowed everything regardless of seed rows. Absence of
// a row is a deny, never an error.
func (t *Table) Allows(role id.Role, module id.ModuleCode, action id.Action) bool {
	if role == id.RoleSuperAdmin {
		return true
	}
	byModule, ok := t.grants[role]
	if !ok {
		return false
	}
	actions, ok := byModule[module]
	if !ok {
		return false
	}
	return actions[action]
}
