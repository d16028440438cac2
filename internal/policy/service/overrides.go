package service

import (
	"context"
	"errors"
	"time"

	"vendo/internal/policy/models"
	"vendo/internal/sentinel"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/audit"
	"vendo/pkg/platform/middleware/request"
)

// SetOverride writes one override cell and drops the tenant's cached
// matrix. Overrides on super admin accounts are rejected, their access
// is structural.
func (s *Service) SetOverride(ctx context.Context, actor id.UserID, o models.Override) (*models.Override, error) {
	if err := s.registry.Validate(o.Module); err != nil {
		return nil, err
	}
	if _, err := id.ParseAction(string(o.Action)); err != nil {
		return nil, err
	}

	target, err := s.users.FindByID(ctx, o.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	if target.Role == id.RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "super admin permissions cannot be overridden")
	}
	if target.TenantID != o.TenantID {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}

	o.GrantedBy = actor
	o.UpdatedAt = time.Now().UTC()
	if err := s.overrides.Upsert(ctx, o); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store override")
	}

	s.Invalidate(o.TenantID)
	if s.metrics != nil {
		s.metrics.IncrementOverrideWrites("set")
	}
	s.emitOverrideAudit(ctx, actor, o.TenantID, o.Module, audit.EventOverrideSet, o)
	return &o, nil
}

// RemoveOverride deletes one override cell, restoring the role default
// for that user.
func (s *Service) RemoveOverride(ctx context.Context, actor id.UserID, tenantID id.TenantID, cell models.OverrideKey) error {
	if err := s.registry.Validate(cell.Module); err != nil {
		return err
	}
	if _, err := id.ParseAction(string(cell.Action)); err != nil {
		return err
	}

	if err := s.overrides.Remove(ctx, tenantID, cell); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "override not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "remove override")
	}

	s.Invalidate(tenantID)
	if s.metrics != nil {
		s.metrics.IncrementOverrideWrites("remove")
	}
	s.emitOverrideAudit(ctx, actor, tenantID, cell.Module, audit.EventOverrideRemoved, models.Override{
		TenantID: tenantID, UserID: cell.UserID, Module: cell.Module, Action: cell.Action,
	})
	return nil
}

// ListOverrides returns every override in the tenant for the admin UI.
func (s *Service) ListOverrides(ctx context.Context, tenantID id.TenantID) ([]models.Override, error) {
	rows, err := s.overrides.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list overrides")
	}
	return rows, nil
}

func (s *Service) emitOverrideAudit(ctx context.Context, actor id.UserID, tenantID id.TenantID, module id.ModuleCode, event audit.AuditEvent, o models.Override) {
	if s.auditor == nil {
		return
	}
	decision := "revoke"
	if o.Allowed {
		decision = "grant"
	}
	err := s.auditor.Emit(ctx, audit.Event{
		ActorID:   actor,
		TenantID:  tenantID,
		Module:    module,
		Action:    string(event),
		Decision:  decision,
		Reason:    "target_user:" + o.UserID.String() + " action:" + string(o.Action),
		RequestID: request.GetRequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit override audit event", "error", err)
	}
}
