// Package service owns the tenant aggregate: signup, the subscription
// lifecycle, package assignment, module activation and resource
// creation under quota. All writes that can change permission outcomes
// invalidate the tenant's cached permission matrix.
package service

import (
	"context"
	"log/slog"
	"time"

	"vendo/internal/catalog"
	"vendo/internal/entitlement"
	"vendo/internal/quota"
	"vendo/internal/tenant/metrics"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	"vendo/pkg/platform/audit"
	"vendo/pkg/platform/middleware/request"
)

type TenantStore interface {
	Create(ctx context.Context, t models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, t models.Tenant, expected models.SubscriptionStatus) error
	List(ctx context.Context) ([]models.Tenant, error)
}

type PackageStore interface {
	FindByID(ctx context.Context, packageID id.PackageID) (*models.SubscriptionPackage, error)
	List(ctx context.Context) ([]models.SubscriptionPackage, error)
}

type ActivationStore interface {
	Upsert(ctx context.Context, a models.ModuleActivation) error
	Find(ctx context.Context, tenantID id.TenantID, module id.ModuleCode) (*models.ModuleActivation, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.ModuleActivation, error)
	DeactivateOutside(ctx context.Context, tenantID id.TenantID, keep map[id.ModuleCode]struct{}, now time.Time) ([]id.ModuleCode, error)
}

type UserStore interface {
	Create(ctx context.Context, u models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.User, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

type BranchStore interface {
	Create(ctx context.Context, b models.Branch) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.Branch, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// QuotaEnforcer reserves growth slots.
type QuotaEnforcer interface {
	WithReservation(ctx context.Context, tenantID id.TenantID, kind id.ResourceKind, create func(ctx context.Context) error) error
	Check(ctx context.Context, tenantID id.TenantID, kind id.ResourceKind) (quota.Decision, error)
}

// EntitlementResolver yields the tenant capability snapshot.
type EntitlementResolver interface {
	Resolve(ctx context.Context, tenantID id.TenantID) (*entitlement.Snapshot, error)
}

// MatrixInvalidator drops cached permission matrices. The policy
// service implements it.
type MatrixInvalidator interface {
	Invalidate(tenantID id.TenantID)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates tenant state.
type Service struct {
	tenants       TenantStore
	packages      PackageStore
	activations   ActivationStore
	users         UserStore
	branches      BranchStore
	registry      *catalog.Registry
	entitlements  EntitlementResolver
	quota         QuotaEnforcer
	invalidator   MatrixInvalidator
	auditor       AuditPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	trialDuration time.Duration
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMatrixInvalidator(i MatrixInvalidator) Option {
	return func(s *Service) { s.invalidator = i }
}

func WithTrialDuration(d time.Duration) Option {
	return func(s *Service) { s.trialDuration = d }
}

// New creates the tenant service. Panics if required dependencies are
// nil - fail fast at startup.
func New(
	tenants TenantStore,
	packages PackageStore,
	activations ActivationStore,
	users UserStore,
	branches BranchStore,
	registry *catalog.Registry,
	entitlements EntitlementResolver,
	enforcer QuotaEnforcer,
	opts ...Option,
) *Service {
	if tenants == nil {
		panic("tenant.New: tenant store is required")
	}
	if packages == nil {
		panic("tenant.New: package store is required")
	}
	if activations == nil {
		panic("tenant.New: activation store is required")
	}
	if users == nil {
		panic("tenant.New: user store is required")
	}
	if branches == nil {
		panic("tenant.New: branch store is required")
	}
	if registry == nil {
		panic("tenant.New: module catalog is required")
	}
	if entitlements == nil {
		panic("tenant.New: entitlement resolver is required")
	}
	if enforcer == nil {
		panic("tenant.New: quota enforcer is required")
	}

	s := &Service{
		tenants:       tenants,
		packages:      packages,
		activations:   activations,
		users:         users,
		branches:      branches,
		registry:      registry,
		entitlements:  entitlements,
		quota:         enforcer,
		logger:        slog.Default(),
		trialDuration: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) invalidate(tenantID id.TenantID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(tenantID)
	}
}

// emitAudit publishes best-effort. Lifecycle decisions are already
// durable in the tenants table, a lost audit line must not fail the
// operation.
func (s *Service) emitAudit(ctx context.Context, actor id.UserID, tenantID id.TenantID, module id.ModuleCode, event audit.AuditEvent, decision, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		ActorID:   actor,
		TenantID:  tenantID,
		Module:    module,
		Action:    string(event),
		Decision:  decision,
		Reason:    reason,
		RequestID: request.GetRequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"tenant_id", tenantID.String(),
			"error", err,
		)
	}
}
