package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"vendo/internal/policy/models"
	"vendo/internal/policy/tracer"
	id "vendo/pkg/domain"
	dErrors "vendo/pkg/domain-errors"
)

// overrideFetchLimit bounds concurrent override lookups during a
// matrix build.
const overrideFetchLimit = 8

// Matrix returns the tenant's permission matrix, serving a cached
// snapshot when one exists. The snapshot is rebuilt lazily after
// Invalidate.
func (s *Service) Matrix(ctx context.Context, tenantID id.TenantID) (*models.Matrix, error) {
	if cached, ok := s.cache.get(tenantID); ok {
		if s.metrics != nil {
			s.metrics.IncrementMatrixCache("hit")
		}
		return cached, nil
	}
	if s.metrics != nil {
		s.metrics.IncrementMatrixCache("miss")
	}

	matrix, err := s.buildMatrix(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.cache.put(tenantID, matrix)
	return matrix, nil
}

// buildMatrix materializes a decision for every user, catalog module
// and action. Entitlement is resolved once for the whole build and
// override fetches fan out per user, so the build does bounded work
// regardless of how permissions are distributed.
func (s *Service) buildMatrix(ctx context.Context, tenantID id.TenantID) (matrix *models.Matrix, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanMatrixBuild,
		tracer.String(tracer.AttrTenantID, tenantID.String()),
	)
	defer func() {
		span.End(err)
		if s.metrics != nil {
			s.metrics.ObserveMatrixBuild(time.Since(started))
			status := "success"
			if err != nil {
				status = "error"
			}
			s.metrics.IncrementMatrixBuilds(status)
		}
	}()

	snapshot, err := s.entitlements.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	span.SetAttributes(tracer.Int64(tracer.AttrUserCount, int64(len(users))))

	overridesByUser := make([]map[cellKey]bool, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overrideFetchLimit)
	for i, u := range users {
		g.Go(func() error {
			_, fetchSpan := s.tracer.Start(gctx, tracer.SpanOverrides,
				tracer.String(tracer.AttrUserID, u.ID.String()),
			)
			rows, fetchErr := s.overrides.ListByUser(gctx, tenantID, u.ID)
			fetchSpan.End(fetchErr)
			if fetchErr != nil {
				return dErrors.Wrap(fetchErr, dErrors.CodeInternal, "load overrides")
			}
			cells := make(map[cellKey]bool, len(rows))
			for _, o := range rows {
				cells[cellKey{module: o.Module, action: o.Action}] = o.Allowed
			}
			overridesByUser[i] = cells
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	modules := s.registry.Modules()
	actions := id.Actions()
	grids := make([]models.UserGrid, len(users))
	for i, u := range users {
		cells := make(map[id.ModuleCode]map[id.Action]models.Cell, len(modules))
		for _, m := range modules {
			row := make(map[id.Action]models.Cell, len(actions))
			for _, a := range actions {
				d := decide(u.Role, u.Active, snapshot, overridesByUser[i], m.Code, a, s.table)
				row[a] = models.Cell{Allowed: d.Allowed, Reason: d.Reason}
			}
			cells[m.Code] = row
		}
		grids[i] = models.UserGrid{UserID: u.ID, Role: u.Role, Active: u.Active, Cells: cells}
	}

	return &models.Matrix{
		TenantID: tenantID,
		BuiltAt:  time.Now().UTC(),
		Users:    grids,
	}, nil
}
