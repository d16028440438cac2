// Package sweep expires lapsed trials on a schedule. Each run is
// idempotent: tenants are re-read and compare-and-swapped one by one,
// so a trial upgraded between listing and expiry is left alone.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/metrics"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
	"vendo/pkg/platform/audit"
)

// Result contains the outcome of one sweep run.
type Result struct {
	Examined int
	Expired  int
	Skipped  int
	Duration time.Duration
}

type TenantStore interface {
	ListExpiredTrials(ctx context.Context, asOf time.Time) ([]models.Tenant, error)
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	Update(ctx context.Context, t models.Tenant, expected models.SubscriptionStatus) error
}

// MatrixInvalidator drops cached permission matrices for tenants the
// sweep expires.
type MatrixInvalidator interface {
	Invalidate(tenantID id.TenantID)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithAuditPublisher(a AuditPublisher) Option {
	return func(w *Worker) { w.auditor = a }
}

func WithMatrixInvalidator(i MatrixInvalidator) Option {
	return func(w *Worker) { w.invalidator = i }
}

type Worker struct {
	store       TenantStore
	logger      *slog.Logger
	interval    time.Duration
	metrics     *metrics.Metrics
	auditor     AuditPublisher
	invalidator MatrixInvalidator
}

func New(store TenantStore, opts ...Option) *Worker {
	w := &Worker{
		store:    store,
		logger:   slog.Default(),
		interval: time.Hour,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := w.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				w.logger.Error("trial_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if w.metrics != nil {
					w.metrics.IncrementSweepRuns("error")
					w.metrics.ObserveSweepDuration(duration)
				}
				continue
			}

			res.Duration = duration
			w.logger.Info("trial_sweep_completed",
				"examined", res.Examined,
				"expired", res.Expired,
				"skipped", res.Skipped,
				"duration_ms", duration.Milliseconds(),
			)
			if w.metrics != nil {
				w.metrics.IncrementSweepRuns("success")
				w.metrics.IncrementSweepExpired(res.Expired)
				w.metrics.ObserveSweepDuration(duration)
			}

		case <-ctx.Done():
			w.logger.Info("trial sweep worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce expires every trial whose window lapsed. Each tenant is
// re-read before the write: a concurrent upgrade changes the status,
// the compare-and-swap fails, and the tenant stays active.
func (w *Worker) RunOnce(ctx context.Context) (*Result, error) {
	now := time.Now().UTC()
	candidates, err := w.store.ListExpiredTrials(ctx, now)
	if err != nil {
		return nil, err
	}

	res := &Result{Examined: len(candidates)}
	for _, candidate := range candidates {
		current, err := w.store.FindByID(ctx, candidate.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				res.Skipped++
				continue
			}
			return nil, err
		}

		expected := current.Status
		if err := current.Expire(now); err != nil {
			// Upgraded or otherwise moved on since listing.
			res.Skipped++
			continue
		}
		if err := w.store.Update(ctx, *current, expected); err != nil {
			if errors.Is(err, sentinel.ErrStaleState) || errors.Is(err, sentinel.ErrNotFound) {
				res.Skipped++
				continue
			}
			return nil, err
		}

		res.Expired++
		if w.invalidator != nil {
			w.invalidator.Invalidate(current.ID)
		}
		if w.auditor != nil {
			err := w.auditor.Emit(ctx, audit.Event{
				TenantID: current.ID,
				Action:   string(audit.EventTrialExpired),
				Decision: "allow",
				Reason:   "trial_window_lapsed",
			})
			if err != nil {
				w.logger.Warn("failed to emit trial expiry audit event",
					"tenant_id", current.ID.String(), "error", err)
			}
		}
	}
	return res, nil
}
