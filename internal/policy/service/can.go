package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendo/internal/entitlement"
	"vendo/internal/policy/models"
	"vendo/internal/policy/table"
	"vendo/internal/policy/tracer"
	"vendo/internal/sentinel"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/audit"
	"vendo/pkg/platform/middleware/request"
)

// CanRequest asks whether one user may perform one action.
type CanRequest struct {
	TenantID id.TenantID
	UserID   id.UserID
	Module   id.ModuleCode
	Action   id.Action
}

type cellKey struct {
	module id.ModuleCode
	action id.Action
}

// decide applies the precedence chain to already-loaded state. It is
// pure so Can and the matrix builder produce identical results from
// the same snapshot.
//
// Order: super admin, user active, tenant entitlement, explicit
// override, role default. The first rule that answers wins.
func decide(
	role id.Role,
	active bool,
	snapshot *entitlement.Snapshot,
	overrides map[cellKey]bool,
	module id.ModuleCode,
	action id.Action,
	defaults *table.Table,
) models.Decision {
	if role == id.RoleSuperAdmin {
		return models.Allow(models.ReasonSuperAdmin)
	}
	if !active {
		return models.Deny(models.ReasonUserInactive)
	}
	if !snapshot.HasModule(module) {
		return models.Deny(models.ReasonModuleNotEntitled)
	}
	if allowed, ok := overrides[cellKey{module: module, action: action}]; ok {
		if allowed {
			return models.Allow(models.ReasonOverrideGrant)
		}
		return models.Deny(models.ReasonExplicitlyRevoked)
	}
	if defaults.Allows(role, module, action) {
		return models.Allow(models.ReasonRoleGrant)
	}
	return models.Deny(models.ReasonNoRoleGrant)
}

// Can resolves a single permission question. It never mutates state
// and never audits, gating callers own the audit record for actions
// they block.
func (s *Service) Can(ctx context.Context, req CanRequest) (models.Decision, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanCan,
		tracer.String(tracer.AttrTenantID, req.TenantID.String()),
		tracer.String(tracer.AttrUserID, req.UserID.String()),
		tracer.String(tracer.AttrModule, string(req.Module)),
		tracer.String(tracer.AttrAction, string(req.Action)),
	)

	decision, err := s.can(ctx, req)
	span.SetAttributes(
		tracer.Bool(tracer.AttrAllowed, decision.Allowed),
		tracer.String(tracer.AttrReason, string(decision.Reason)),
	)
	span.End(err)

	if s.metrics != nil {
		s.metrics.ObserveCanLatency(time.Since(started))
		if err == nil {
			outcome := "deny"
			if decision.Allowed {
				outcome = "allow"
			}
			s.metrics.IncrementDecision(outcome, string(decision.Reason))
		}
	}
	return decision, err
}

func (s *Service) can(ctx context.Context, req CanRequest) (models.Decision, error) {
	if err := s.registry.Validate(req.Module); err != nil {
		return models.Decision{}, err
	}
	if _, err := id.ParseAction(string(req.Action)); err != nil {
		return models.Decision{}, err
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Decision{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}

	// Super admins are platform operators, they bypass tenant scoping
	// entirely. Everyone else must belong to the tenant in question.
	if user.Role == id.RoleSuperAdmin {
		return models.Allow(models.ReasonSuperAdmin), nil
	}
	if user.TenantID != req.TenantID {
		return models.Decision{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}

	snapshot, err := s.entitlements.Resolve(ctx, req.TenantID)
	if err != nil {
		return models.Decision{}, err
	}

	rows, err := s.overrides.ListByUser(ctx, req.TenantID, req.UserID)
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "load overrides")
	}
	overrides := make(map[cellKey]bool, len(rows))
	for _, o := range rows {
		overrides[cellKey{module: o.Module, action: o.Action}] = o.Allowed
	}

	return decide(user.Role, user.Active, snapshot, overrides, req.Module, req.Action, s.table), nil
}

// Authorize gates a mutating operation on a permission check. Denials
// are audited here with the decision reason, then surfaced as a
// forbidden domain error.
func (s *Service) Authorize(ctx context.Context, req CanRequest) error {
	decision, err := s.Can(ctx, req)
	if err != nil {
		return err
	}
	if decision.Allowed {
		return nil
	}

	if s.auditor != nil {
		event := audit.Event{
			ActorID:   req.UserID,
			TenantID:  req.TenantID,
			Module:    req.Module,
			Action:    string(audit.EventPermissionDenied),
			Decision:  "deny",
			Reason:    string(decision.Reason),
			RequestID: request.GetRequestID(ctx),
		}
		if err := s.auditor.Emit(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to emit permission denial audit event",
				"error", err,
				"user_id", req.UserID.String(),
			)
		}
	}
	return dErrors.New(dErrors.CodeForbidden,
		fmt.Sprintf("%s on %s denied: %s", req.Action, req.Module, decision.Reason))
}
