// Package models defines the permission decision vocabulary shared by
// the resolver, the matrix builder and the HTTP layer.
package models

import (
	"time"

	id "vendo/pkg/domain"
)

// Reason explains a permission decision. Every decision carries exactly
// one reason so audit records and API consumers never have to guess
// which rule fired.
type Reason string

const (
	// Allow reasons.
	ReasonSuperAdmin    Reason = "super_admin"
	ReasonRoleGrant     Reason = "role_grant"
	ReasonOverrideGrant Reason = "override_grant"

	// Deny reasons, in precedence order.
	ReasonUserInactive      Reason = "user_inactive"
	ReasonModuleNotEntitled Reason = "module_not_entitled"
	ReasonExplicitlyRevoked Reason = "explicitly_revoked"
	ReasonNoRoleGrant       Reason = "no_role_grant"
)

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

func Allow(reason Reason) Decision { return Decision{Allowed: true, Reason: reason} }
func Deny(reason Reason) Decision  { return Decision{Allowed: false, Reason: reason} }

// RoleGrant is one row of the role policy table: the platform default
// answer for a role acting on a module.
type RoleGrant struct {
	Role    id.Role
	Module  id.ModuleCode
	Action  id.Action
	Allowed bool
}

// Override is a per-tenant, per-user exception to the role default.
// Allowed=true grants beyond the role, Allowed=false revokes a default
// grant. Overrides never widen tenant entitlement.
type Override struct {
	TenantID  id.TenantID   `json:"tenant_id"`
	UserID    id.UserID     `json:"user_id"`
	Module    id.ModuleCode `json:"module"`
	Action    id.Action     `json:"action"`
	Allowed   bool          `json:"allowed"`
	GrantedBy id.UserID     `json:"granted_by"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// OverrideKey identifies one override cell within a tenant.
type OverrideKey struct {
	UserID id.UserID
	Module id.ModuleCode
	Action id.Action
}

// Key returns the cell identity of o.
func (o Override) Key() OverrideKey {
	return OverrideKey{UserID: o.UserID, Module: o.Module, Action: o.Action}
}

// Matrix is a point-in-time snapshot of every user's effective
// permissions within a tenant. Cells are materialized for all catalog
// modules and actions so the front end renders without further calls.
type Matrix struct {
	TenantID id.TenantID `json:"tenant_id"`
	BuiltAt  time.Time   `json:"built_at"`
	Users    []UserGrid  `json:"users"`
}

// UserGrid is one user's row block in the matrix.
type UserGrid struct {
	UserID id.UserID                            `json:"user_id"`
	Role   id.Role                              `json:"role"`
	Active bool                                 `json:"active"`
	Cells  map[id.ModuleCode]map[id.Action]Cell `json:"cells"`
}

// Cell is a single module and action decision inside the matrix.
type Cell struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}
