package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"vendo/internal/entitlement"
	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	"vendo/pkg/platform/audit"
)

// CreateUser adds a staff account under the tenant's user quota. The
// quota check and the insert run atomically per tenant, concurrent
// creates can never overshoot the package limit.
func (s *Service) CreateUser(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.CreateUserRequest) (*models.User, error) {
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        id.UserID(uuid.New()),
		TenantID:  tenantID,
		Email:     req.Email,
		Name:      req.Name,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	err = s.quota.WithReservation(ctx, tenantID, id.ResourceUsers, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.New(dErrors.CodeConflict, "email is already in use")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "create user")
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeQuotaExceeded) {
			s.emitAudit(ctx, actor, tenantID, "", audit.EventQuotaDenied, "deny", "resource:users")
		}
		return nil, err
	}

	s.invalidate(tenantID)
	if s.metrics != nil {
		s.metrics.IncrementResourcesCreated("users")
	}
	s.emitAudit(ctx, actor, tenantID, "", audit.EventUserCreated, "allow", "role:"+string(role))
	return &user, nil
}

// CreateBranch adds a location under the tenant's branch quota.
func (s *Service) CreateBranch(ctx context.Context, actor id.UserID, tenantID id.TenantID, req models.CreateBranchRequest) (*models.Branch, error) {
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	branch := models.Branch{
		ID:        id.BranchID(uuid.New()),
		TenantID:  tenantID,
		Name:      req.Name,
		Address:   req.Address,
		CreatedAt: time.Now().UTC(),
	}

	err := s.quota.WithReservation(ctx, tenantID, id.ResourceBranches, func(ctx context.Context) error {
		if err := s.branches.Create(ctx, branch); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create branch")
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeQuotaExceeded) {
			s.emitAudit(ctx, actor, tenantID, "", audit.EventQuotaDenied, "deny", "resource:branches")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementResourcesCreated("branches")
	}
	s.emitAudit(ctx, actor, tenantID, "", audit.EventBranchCreated, "allow", "name:"+branch.Name)
	return &branch, nil
}

// Tenant returns one tenant by ID.
func (s *Service) Tenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.loadTenant(ctx, tenantID)
}

// Tenants returns every tenant for the owner console.
func (s *Service) Tenants(ctx context.Context) ([]models.Tenant, error) {
	out, err := s.tenants.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list tenants")
	}
	return out, nil
}

// Packages lists the available subscription packages.
func (s *Service) Packages(ctx context.Context) ([]models.SubscriptionPackage, error) {
	out, err := s.packages.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list packages")
	}
	return out, nil
}

// Users lists the tenant's staff accounts.
func (s *Service) Users(ctx context.Context, tenantID id.TenantID) ([]models.User, error) {
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	out, err := s.users.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	return out, nil
}

// Branches lists the tenant's locations.
func (s *Service) Branches(ctx context.Context, tenantID id.TenantID) ([]models.Branch, error) {
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	out, err := s.branches.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list branches")
	}
	return out, nil
}

// Entitlements resolves the tenant's current capability snapshot for
// the API surface.
func (s *Service) Entitlements(ctx context.Context, tenantID id.TenantID) (*entitlement.Snapshot, error) {
	return s.entitlements.Resolve(ctx, tenantID)
}
