package models

import (
	"regexp"
	"strings"

	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,62}[a-z0-9])?$`)

// SignupRequest registers a new tenant in trial_pending state.
type SignupRequest struct {
	Slug             string `json:"slug"`
	Name             string `json:"name"`
	BusinessCategory string `json:"business_category"`
}

func (r *SignupRequest) Normalize() {
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.Name = strings.TrimSpace(r.Name)
	r.BusinessCategory = strings.ToLower(strings.TrimSpace(r.BusinessCategory))
}

func (r *SignupRequest) Validate() error {
	if !slugPattern.MatchString(r.Slug) {
		return dErrors.New(dErrors.CodeValidation, "slug must be 1-64 lowercase letters, digits or hyphens")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.BusinessCategory == "" {
		return dErrors.New(dErrors.CodeValidation, "business_category is required")
	}
	return nil
}

// UpgradeRequest converts a trial to a paid subscription.
type UpgradeRequest struct {
	PackageID  string `json:"package_id"`
	PaymentRef string `json:"payment_ref"`
}

func (r *UpgradeRequest) Normalize() {
	r.PackageID = strings.TrimSpace(r.PackageID)
	r.PaymentRef = strings.TrimSpace(r.PaymentRef)
}

func (r *UpgradeRequest) Validate() error {
	if r.PackageID == "" {
		return dErrors.New(dErrors.CodeValidation, "package_id is required")
	}
	if _, err := id.ParsePackageID(r.PackageID); err != nil {
		return err
	}
	return nil
}

// AssignPackageRequest sets or changes a tenant's package from the
// owner console.
type AssignPackageRequest struct {
	PackageID string `json:"package_id"`
}

func (r *AssignPackageRequest) Normalize() {
	r.PackageID = strings.TrimSpace(r.PackageID)
}

func (r *AssignPackageRequest) Validate() error {
	if r.PackageID == "" {
		return dErrors.New(dErrors.CodeValidation, "package_id is required")
	}
	if _, err := id.ParsePackageID(r.PackageID); err != nil {
		return err
	}
	return nil
}

// ReactivateRequest restores a suspended or expired tenant. PackageID
// is required only when the tenant has none on record.
type ReactivateRequest struct {
	PackageID  string `json:"package_id,omitempty"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

func (r *ReactivateRequest) Normalize() {
	r.PackageID = strings.TrimSpace(r.PackageID)
	r.PaymentRef = strings.TrimSpace(r.PaymentRef)
}

func (r *ReactivateRequest) Validate() error {
	if r.PackageID != "" {
		if _, err := id.ParsePackageID(r.PackageID); err != nil {
			return err
		}
	}
	return nil
}

// ModuleRequest targets one module for activation or deactivation.
type ModuleRequest struct {
	Module string `json:"module"`
}

func (r *ModuleRequest) Normalize() {
	r.Module = strings.ToLower(strings.TrimSpace(r.Module))
}

func (r *ModuleRequest) Validate() error {
	if r.Module == "" {
		return dErrors.New(dErrors.CodeValidation, "module is required")
	}
	return nil
}

// CreateUserRequest adds a staff account to a tenant.
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (r *CreateUserRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

func (r *CreateUserRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	if role == id.RoleSuperAdmin {
		return dErrors.New(dErrors.CodeValidation, "super admin accounts cannot be created through tenant signup")
	}
	return nil
}

// CreateBranchRequest adds a location to a tenant.
type CreateBranchRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (r *CreateBranchRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
}

func (r *CreateBranchRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}
