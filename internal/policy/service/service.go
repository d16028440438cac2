// Package service evaluates permissions. A single Can answers one
// user-module-action question, BuildMatrix materializes every answer
// for a tenant at once. Both paths share one rule evaluator so they can
// never drift apart.
package service

import (
	"context"
	"log/slog"

	"vendo/internal/catalog"
	"vendo/internal/entitlement"
	"vendo/internal/policy/metrics"
	"vendo/internal/policy/models"
	"vendo/internal/policy/table"
	"vendo/internal/policy/tracer"
	tenantmodels "vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	"vendo/pkg/platform/audit"
)

// UserSource reads staff accounts.
type UserSource interface {
	FindByID(ctx context.Context, userID id.UserID) (*tenantmodels.User, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]tenantmodels.User, error)
}

// OverrideStore persists per-user permission overrides.
type OverrideStore interface {
	Upsert(ctx context.Context, o models.Override) error
	Remove(ctx context.Context, tenantID id.TenantID, cell models.OverrideKey) error
	ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Override, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.Override, error)
}

// EntitlementResolver yields the tenant capability snapshot.
type EntitlementResolver interface {
	Resolve(ctx context.Context, tenantID id.TenantID) (*entitlement.Snapshot, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the permission resolver.
type Service struct {
	users        UserSource
	overrides    OverrideStore
	entitlements EntitlementResolver
	table        *table.Table
	registry     *catalog.Registry
	cache        *matrixCache
	auditor      AuditPublisher
	tracer       tracer.Tracer
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures the Service.
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

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// New creates the permission resolver. Panics if required dependencies
// are nil - fail fast at startup.
func New(
	users UserSource,
	overrides OverrideStore,
	entitlements EntitlementResolver,
	tbl *table.Table,
	registry *catalog.Registry,
	opts ...Option,
) *Service {
	if users == nil {
		panic("policy.New: user source is required")
	}
	if overrides == nil {
		panic("policy.New: override store is required")
	}
	if entitlements == nil {
		panic("policy.New: entitlement resolver is required")
	}
	if tbl == nil {
		panic("policy.New: role policy table is required")
	}
	if registry == nil {
		panic("policy.New: module catalog is required")
	}

	s := &Service{
		users:        users,
		overrides:    overrides,
		entitlements: entitlements,
		table:        tbl,
		registry:     registry,
		cache:        newMatrixCache(),
		tracer:       tracer.NewNoop(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops the cached matrix for a tenant. Tenant lifecycle
// changes, package swaps, activations and override writes all route
// through here so stale snapshots never outlive the state they were
// built from.
func (s *Service) Invalidate(tenantID id.TenantID) {
	s.cache.remove(tenantID)
	if s.metrics != nil {
		s.metrics.IncrementMatrixCache("invalidated")
	}
}
