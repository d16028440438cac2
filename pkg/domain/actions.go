package domain

import (
	dErrors "vendo/pkg/domain-errors"
)

// Action is the closed set of operations a permission can gate. Every cell of
// the permission matrix is a (module, action) pair drawn from this set.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists the four fixed actions in display order.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}
}

// ParseAction validates an action string at trust boundaries.
//
// Errors: returns CodeInvalidInput for anything outside the closed set;
// ad hoc action strings must be rejected before reaching the resolver.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete:
		return Action(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown action: must be view, create, update or delete")
	}
}

func (a Action) String() string { return string(a) }

// ModuleCode identifies a SaaS module (pos, inventory, reports, ...).
// The set of valid codes is owned by the catalog registry; this type only
// carries the identifier.
type ModuleCode string

func (m ModuleCode) String() string { return string(m) }

// ResourceKind names a countable, quota-limited resource.
type ResourceKind string

const (
	ResourceUsers    ResourceKind = "users"
	ResourceBranches ResourceKind = "branches"
)

// ParseResourceKind validates a resource kind at trust boundaries.
func ParseResourceKind(s string) (ResourceKind, error) {
	switch ResourceKind(s) {
	case ResourceUsers, ResourceBranches:
		return ResourceKind(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown resource kind: must be users or branches")
	}
}
