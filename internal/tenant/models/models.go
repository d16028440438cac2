// Package models holds the tenant aggregate: subscription lifecycle,
// packages, module activations, users and branches.
package models

import (
	"fmt"
	"time"

	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

// SubscriptionStatus is the tenant lifecycle state.
type SubscriptionStatus string

const (
	StatusTrialPending SubscriptionStatus = "trial_pending"
	StatusTrialActive  SubscriptionStatus = "trial_active"
	StatusActive       SubscriptionStatus = "active"
	StatusSuspended    SubscriptionStatus = "suspended"
	StatusExpired      SubscriptionStatus = "expired"
)

// ParseSubscriptionStatus validates a stored or transported status value.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(s) {
	case StatusTrialPending, StatusTrialActive, StatusActive, StatusSuspended, StatusExpired:
		return SubscriptionStatus(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown subscription status %q", s))
	}
}

// Enabled reports whether the status grants any entitlement at all.
// Suspended and expired tenants keep their data but lose all module
// access until reactivated.
func (s SubscriptionStatus) Enabled() bool {
	return s == StatusTrialActive || s == StatusActive
}

// Tenant is one customer organization.
type Tenant struct {
	ID               id.TenantID        `json:"id"`
	Slug             string             `json:"slug"`
	Name             string             `json:"name"`
	BusinessCategory string             `json:"business_category"`
	Status           SubscriptionStatus `json:"status"`
	PackageID        id.PackageID       `json:"package_id,omitempty"`
	TrialStartsAt    *time.Time         `json:"trial_starts_at,omitempty"`
	TrialEndsAt      *time.Time         `json:"trial_ends_at,omitempty"`
	PaymentRef       string             `json:"payment_ref,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (t *Tenant) invalidTransition(to SubscriptionStatus) error {
	return dErrors.New(dErrors.CodeInvalidTransition,
		fmt.Sprintf("cannot transition tenant from %s to %s", t.Status, to))
}

// ApproveTrial moves a freshly signed-up tenant into its trial window.
func (t *Tenant) ApproveTrial(now time.Time, duration time.Duration) error {
	if t.Status != StatusTrialPending {
		return t.invalidTransition(StatusTrialActive)
	}
	end := now.Add(duration)
	t.Status = StatusTrialActive
	t.TrialStartsAt = &now
	t.TrialEndsAt = &end
	t.UpdatedAt = now
	return nil
}

// Upgrade converts a trialing tenant to a paying one. The package must
// already be validated by the caller.
func (t *Tenant) Upgrade(now time.Time, packageID id.PackageID, paymentRef string) error {
	if t.Status != StatusTrialActive && t.Status != StatusTrialPending {
		return t.invalidTransition(StatusActive)
	}
	if packageID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "upgrade requires a package")
	}
	t.Status = StatusActive
	t.PackageID = packageID
	t.PaymentRef = paymentRef
	t.TrialStartsAt = nil
	t.TrialEndsAt = nil
	t.UpdatedAt = now
	return nil
}

// Expire ends a trial after its window has lapsed. Only trial_active
// tenants expire; the sweep re-reads state before calling this so a
// concurrent upgrade wins.
func (t *Tenant) Expire(now time.Time) error {
	if t.Status != StatusTrialActive {
		return t.invalidTransition(StatusExpired)
	}
	if t.TrialEndsAt == nil || now.Before(*t.TrialEndsAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "trial window has not lapsed")
	}
	t.Status = StatusExpired
	t.UpdatedAt = now
	return nil
}

// Suspend pauses a paying tenant, typically for failed payment.
func (t *Tenant) Suspend(now time.Time) error {
	if t.Status != StatusActive {
		return t.invalidTransition(StatusSuspended)
	}
	t.Status = StatusSuspended
	t.UpdatedAt = now
	return nil
}

// Reactivate restores a suspended or expired tenant. An expired tenant
// must carry a package, it cannot come back onto trial terms.
func (t *Tenant) Reactivate(now time.Time, packageID id.PackageID, paymentRef string) error {
	switch t.Status {
	case StatusSuspended:
	case StatusExpired:
		if packageID.IsNil() && t.PackageID.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "reactivating an expired tenant requires a package")
		}
	default:
		return t.invalidTransition(StatusActive)
	}
	if !packageID.IsNil() {
		t.PackageID = packageID
	}
	if paymentRef != "" {
		t.PaymentRef = paymentRef
	}
	t.Status = StatusActive
	t.TrialStartsAt = nil
	t.TrialEndsAt = nil
	t.UpdatedAt = now
	return nil
}

// SubscriptionPackage bundles modules with growth quotas.
type SubscriptionPackage struct {
	ID          id.PackageID    `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	MaxUsers    int             `json:"max_users"`
	MaxBranches int             `json:"max_branches"`
	ModuleCodes []id.ModuleCode `json:"module_codes"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate enforces the package shape: quotas are at least one, the
// module list is non-empty.
func (p SubscriptionPackage) Validate() error {
	if p.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "package code is required")
	}
	if p.MaxUsers < 1 {
		return dErrors.New(dErrors.CodeValidation, "package max_users must be at least 1")
	}
	if p.MaxBranches < 1 {
		return dErrors.New(dErrors.CodeValidation, "package max_branches must be at least 1")
	}
	if len(p.ModuleCodes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "package must include at least one module")
	}
	return nil
}

// Includes reports whether the package bundles the module.
func (p SubscriptionPackage) Includes(code id.ModuleCode) bool {
	for _, m := range p.ModuleCodes {
		if m == code {
			return true
		}
	}
	return false
}

// ActivationStatus is the tenant's stance on one module.
type ActivationStatus string

const (
	ActivationActive   ActivationStatus = "active"
	ActivationPending  ActivationStatus = "pending"
	ActivationInactive ActivationStatus = "inactive"
)

// ModuleActivation records a tenant opting a module in or out.
// OwnerGranted marks activations the platform owner enabled outside
// the tenant's package, they survive package downgrades.
type ModuleActivation struct {
	TenantID     id.TenantID      `json:"tenant_id"`
	Module       id.ModuleCode    `json:"module"`
	Status       ActivationStatus `json:"status"`
	OwnerGranted bool             `json:"owner_granted"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// User is a staff account inside a tenant. Super admins are platform
// operators and carry no tenant.
type User struct {
	ID        id.UserID   `json:"id"`
	TenantID  id.TenantID `json:"tenant_id,omitempty"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      id.Role     `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Validate checks the tenant linkage invariant: every user belongs to
// a tenant unless they are a super admin.
func (u User) Validate() error {
	if u.Role == id.RoleSuperAdmin {
		if !u.TenantID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "super admin accounts are not tenant scoped")
		}
		return nil
	}
	if u.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user requires a tenant")
	}
	return nil
}

// Branch is a physical or logical location of a tenant.
type Branch struct {
	ID        id.BranchID `json:"id"`
	TenantID  id.TenantID `json:"tenant_id"`
	Name      string      `json:"name"`
	Address   string      `json:"address,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
