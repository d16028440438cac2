package activation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, a models.ModuleActivation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO module_activations (tenant_id, module, status, owner_granted, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, module)
		DO UPDATE SET status = EXCLUDED.status, owner_granted = EXCLUDED.owner_granted, updated_at = EXCLUDED.updated_at`,
		a.TenantID.String(), string(a.Module), string(a.Status), a.OwnerGranted, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert activation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, tenantID id.TenantID, module id.ModuleCode) (*models.ModuleActivation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, module, status, owner_granted, updated_at
		FROM module_activations WHERE tenant_id = $1 AND module = $2`,
		tenantID.String(), string(module))

	a, err := scanActivation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return a, err
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.ModuleActivation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, module, status, owner_granted, updated_at
		FROM module_activations WHERE tenant_id = $1 ORDER BY module`,
		tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	defer rows.Close()

	var out []models.ModuleActivation
	for rows.Next() {
		a, err := scanActivation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeactivateOutside(ctx context.Context, tenantID id.TenantID, keep map[id.ModuleCode]struct{}, now time.Time) ([]id.ModuleCode, error) {
	keepCodes := make([]string, 0, len(keep))
	for code := range keep {
		keepCodes = append(keepCodes, string(code))
	}
	rows, err := s.db.QueryContext(ctx, `
		UPDATE module_activations
		SET status = $1, updated_at = $2
		WHERE tenant_id = $3 AND status = $4 AND owner_granted = FALSE AND NOT (module = ANY($5))
		RETURNING module`,
		string(models.ActivationInactive), now, tenantID.String(), string(models.ActivationActive), keepCodes,
	)
	if err != nil {
		return nil, fmt.Errorf("deactivate outside package: %w", err)
	}
	defer rows.Close()

	var flipped []id.ModuleCode
	for rows.Next() {
		var module string
		if err := rows.Scan(&module); err != nil {
			return nil, fmt.Errorf("scan flipped module: %w", err)
		}
		flipped = append(flipped, id.ModuleCode(module))
	}
	return flipped, rows.Err()
}

func scanActivation(scan func(dest ...any) error) (*models.ModuleActivation, error) {
	var (
		a         models.ModuleActivation
		rawTenant string
		module    string
		status    string
	)
	if err := scan(&rawTenant, &module, &status, &a.OwnerGranted, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan activation: %w", err)
	}
	var err error
	if a.TenantID, err = id.ParseTenantID(rawTenant); err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	a.Module = id.ModuleCode(module)
	a.Status = models.ActivationStatus(status)
	return &a, nil
}
