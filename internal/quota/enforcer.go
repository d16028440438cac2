// Package quota enforces per-tenant growth ceilings. The check and the
// subsequent insert run under a per-tenant lock so concurrent creates
// cannot both observe a free slot and overshoot the limit.
package quota

import (
	"context"
	"fmt"
	"log/slog"

	"vendo/internal/entitlement"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
	psync "vendo/pkg/platform/sync"
)

// Limits yields the tenant's current quota snapshot.
type Limits interface {
	Resolve(ctx context.Context, tenantID id.TenantID) (*entitlement.Snapshot, error)
}

// Decision reports the outcome of a quota check.
type Decision struct {
	Allowed bool `json:"allowed"`
	Current int  `json:"current"`
	Limit   int  `json:"limit"`
}

type Enforcer struct {
	limits   Limits
	users    entitlement.Counter
	branches entitlement.Counter
	locks    *psync.ShardedMutex
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Enforcer)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enforcer) { e.logger = logger.With("component", "quota_enforcer") }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Enforcer) { e.metrics = m }
}

func NewEnforcer(limits Limits, users, branches entitlement.Counter, opts ...Option) *Enforcer {
	e := &Enforcer{
		limits:   limits,
		users:    users,
		branches: branches,
		locks:    psync.NewShardedMutex(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check answers "is there room" without reserving the slot. Callers
// that are about to create must use WithReservation instead.
func (e *Enforcer) Check(ctx context.Context, tenantID id.TenantID, kind id.ResourceKind) (Decision, error) {
	return e.evaluate(ctx, tenantID, kind)
}

// WithReservation runs create while holding the tenant's quota lock,
// after verifying there is room for one more resource of kind. The
// lock spans both the count and the insert, so at most limit creates
// ever succeed no matter how many race.
//
// The lock is per-process. Running more than one replica against the
// same database requires a row lock on the tenant (SELECT ... FOR
// UPDATE) inside the create transaction to keep the count exact.
func (e *Enforcer) WithReservation(ctx context.Context, tenantID id.TenantID, kind id.ResourceKind, create func(ctx context.Context) error) error {
	key := tenantID.String() + "/" + string(kind)
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	decision, err := e.evaluate(ctx, tenantID, kind)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		e.observe(kind, "denied")
		e.logger.Info("quota exceeded",
			"tenant_id", tenantID.String(),
			"resource", string(kind),
			"current", decision.Current,
			"limit", decision.Limit)
		return dErrors.New(dErrors.CodeQuotaExceeded,
			fmt.Sprintf("%s quota reached (%d of %d)", kind, decision.Current, decision.Limit))
	}
	if err := create(ctx); err != nil {
		return err
	}
	e.observe(kind, "granted")
	return nil
}

func (e *Enforcer) evaluate(ctx context.Context, tenantID id.TenantID, kind id.ResourceKind) (Decision, error) {
	snapshot, err := e.limits.Resolve(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}
	counter := e.users
	if kind == id.ResourceBranches {
		counter = e.branches
	}
	current, err := counter.CountByTenant(ctx, tenantID)
	if err != nil {
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "count resources")
	}
	limit := snapshot.Limit(kind)
	return Decision{Allowed: current < limit, Current: current, Limit: limit}, nil
}

func (e *Enforcer) observe(kind id.ResourceKind, outcome string) {
	if e.metrics != nil {
		e.metrics.IncrementReservations(string(kind), outcome)
	}
}
