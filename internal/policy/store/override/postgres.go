package override

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vendo/internal/policy/models"
	"vendo/internal/sentinel"
	id "vendo/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, o models.Override) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permission_overrides (tenant_id, user_id, module, action, allowed, granted_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, user_id, module, action)
		DO UPDATE SET allowed = EXCLUDED.allowed, granted_by = EXCLUDED.granted_by, updated_at = EXCLUDED.updated_at`,
		o.TenantID.String(), o.UserID.String(), string(o.Module), string(o.Action),
		o.Allowed, o.GrantedBy.String(), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, tenantID id.TenantID, cell models.OverrideKey) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM permission_overrides
		WHERE tenant_id = $1 AND user_id = $2 AND module = $3 AND action = $4`,
		tenantID.String(), cell.UserID.String(), string(cell.Module), string(cell.Action),
	)
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete override rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, user_id, module, action, allowed, granted_by, updated_at
		FROM permission_overrides
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY module, action`,
		tenantID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("list overrides by user: %w", err)
	}
	defer rows.Close()
	return scanOverrides(rows)
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, user_id, module, action, allowed, granted_by, updated_at
		FROM permission_overrides
		WHERE tenant_id = $1
		ORDER BY user_id, module, action`,
		tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list overrides by tenant: %w", err)
	}
	defer rows.Close()
	return scanOverrides(rows)
}

func scanOverrides(rows *sql.Rows) ([]models.Override, error) {
	var out []models.Override
	for rows.Next() {
		var (
			o          models.Override
			rawTenant  string
			rawUser    string
			module     string
			action     string
			rawGranted sql.NullString
		)
		err := rows.Scan(&rawTenant, &rawUser, &module, &action, &o.Allowed, &rawGranted, &o.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("scan override: %w", err)
		}
		if o.TenantID, err = id.ParseTenantID(rawTenant); err != nil {
			return nil, fmt.Errorf("parse tenant id: %w", err)
		}
		if o.UserID, err = id.ParseUserID(rawUser); err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		if rawGranted.Valid {
			if o.GrantedBy, err = id.ParseUserID(rawGranted.String); err != nil {
				return nil, fmt.Errorf("parse granted_by: %w", err)
			}
		}
		o.Module = id.ModuleCode(module)
		o.Action = id.Action(action)
		out = append(out, o)
	}
	return out, rows.Err()
}
