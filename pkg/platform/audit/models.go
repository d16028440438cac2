package audit

import (
	"context"
	"time"

	id "vendo/pkg/domain"
)

// Event is emitted from domain logic to capture policy-relevant actions:
// every permission denial and every privileged allow (module activation,
// override change, lifecycle transition). Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   id.UserID
	TenantID  id.TenantID
	Module    id.ModuleCode
	Action    string
	Decision  string
	Reason    string
	RequestID string
}

// Store is the durable sink for audit events. The policy core appends to it
// but does not own its storage format.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	EventTenantSignedUp    AuditEvent = "tenant_signed_up"
	EventTrialApproved     AuditEvent = "trial_approved"
	EventTrialExpired      AuditEvent = "trial_expired"
	EventTenantUpgraded    AuditEvent = "tenant_upgraded"
	EventTenantSuspended   AuditEvent = "tenant_suspended"
	EventTenantActivated   AuditEvent = "tenant_activated"
	EventPackageAssigned   AuditEvent = "package_assigned"
	EventModuleActivated   AuditEvent = "module_activated"
	EventModuleDeactivated AuditEvent = "module_deactivated"
	EventOverrideSet       AuditEvent = "permission_override_set"
	EventOverrideRemoved   AuditEvent = "permission_override_removed"
	EventPermissionDenied  AuditEvent = "permission_denied"
	EventQuotaDenied       AuditEvent = "quota_denied"
	EventUserCreated       AuditEvent = "user_created"
	EventBranchCreated     AuditEvent = "branch_created"
)
