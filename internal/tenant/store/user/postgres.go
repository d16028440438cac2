package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

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

func (s *PostgresStore) Create(ctx context.Context, u models.User) error {
	var tenantID any
	if !u.TenantID.IsNil() {
		tenantID = u.TenantID.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID.String(), tenantID, u.Email, u.Name, string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, name, role, active, created_at, updated_at
		FROM users WHERE id = $1`, userID.String())

	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) Update(ctx context.Context, u models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = $2, name = $3, role = $4, active = $5, updated_at = $6
		WHERE id = $1`,
		u.ID.String(), u.Email, u.Name, string(u.Role), u.Active, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, email, name, role, active, created_at, updated_at
		FROM users WHERE tenant_id = $1 ORDER BY email`, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanUser(scan func(dest ...any) error) (*models.User, error) {
	var (
		u         models.User
		rawID     string
		rawTenant sql.NullString
		role      string
	)
	if err := scan(&rawID, &rawTenant, &u.Email, &u.Name, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	var err error
	if u.ID, err = id.ParseUserID(rawID); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if rawTenant.Valid {
		if u.TenantID, err = id.ParseTenantID(rawTenant.String); err != nil {
			return nil, fmt.Errorf("parse tenant id: %w", err)
		}
	}
	if u.Role, err = id.ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}
