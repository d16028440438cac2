package handler

import (
	"strings"

	"vendo/internal/policy/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

// CheckRequest asks whether one user may perform one action.
type CheckRequest struct {
	UserID string `json:"user_id"`
	Module string `json:"module"`
	Action string `json:"action"`
}

func (r *CheckRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Module = strings.ToLower(strings.TrimSpace(r.Module))
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
}

func (r *CheckRequest) Validate() error {
	if r.UserID == "" {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if r.Module == "" {
		return dErrors.New(dErrors.CodeValidation, "module is required")
	}
	if _, err := id.ParseAction(r.Action); err != nil {
		return err
	}
	return nil
}

// SetOverrideRequest writes one per-user override cell. Allowed is a
// pointer so that an omitted field is rejected rather than read as revoke.
type SetOverrideRequest struct {
	UserID  string `json:"user_id"`
	Module  string `json:"module"`
	Action  string `json:"action"`
	Allowed *bool  `json:"allowed"`
}

func (r *SetOverrideRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Module = strings.ToLower(strings.TrimSpace(r.Module))
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
}

func (r *SetOverrideRequest) Validate() error {
	if r.UserID == "" {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if r.Module == "" {
		return dErrors.New(dErrors.CodeValidation, "module is required")
	}
	if _, err := id.ParseAction(r.Action); err != nil {
		return err
	}
	if r.Allowed == nil {
		return dErrors.New(dErrors.CodeValidation, "allowed is required")
	}
	return nil
}

type OverrideListResponse struct {
	Overrides []models.Override `json:"overrides"`
}
