package roledefault

import (
	"context"
	"database/sql"
	"fmt"

	"vendo/internal/policy/models"
	id "vendo/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Replace rewrites the role_default_grants table in one transaction.
func (s *PostgresStore) Replace(ctx context.Context, rows []models.RoleGrant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace grants: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_default_grants`); err != nil {
		return fmt.Errorf("clear role grants: %w", err)
	}
	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO role_default_grants (role, module, action, allowed)
			VALUES ($1, $2, $3, $4)`,
			string(row.Role), string(row.Module), string(row.Action), row.Allowed,
		)
		if err != nil {
			return fmt.Errorf("insert role grant: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]models.RoleGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, module, action, allowed FROM role_default_grants ORDER BY role, module, action`)
	if err != nil {
		return nil, fmt.Errorf("list role grants: %w", err)
	}
	defer rows.Close()

	var out []models.RoleGrant
	for rows.Next() {
		var role, module, action string
		var allowed bool
		if err := rows.Scan(&role, &module, &action, &allowed); err != nil {
			return nil, fmt.Errorf("scan role grant: %w", err)
		}
		out = append(out, models.RoleGrant{
			Role:    id.Role(role),
			Module:  id.ModuleCode(module),
			Action:  id.Action(action),
			Allowed: allowed,
		})
	}
	return out, rows.Err()
}
