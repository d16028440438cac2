package branch

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

func (s *PostgresStore) Create(ctx context.Context, b models.Branch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (id, tenant_id, name, address, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		b.ID.String(), b.TenantID.String(), b.Name, b.Address, b.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert branch: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, branchID id.BranchID) (*models.Branch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, address, created_at
		FROM branches WHERE id = $1`, branchID.String())

	b, err := scanBranch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return b, err
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, address, created_at
		FROM branches WHERE tenant_id = $1 ORDER BY name`, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var out []models.Branch
	for rows.Next() {
		b, err := scanBranch(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM branches WHERE tenant_id = $1`, tenantID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count branches: %w", err)
	}
	return count, nil
}

func scanBranch(scan func(dest ...any) error) (*models.Branch, error) {
	var (
		b         models.Branch
		rawID     string
		rawTenant string
	)
	if err := scan(&rawID, &rawTenant, &b.Name, &b.Address, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan branch: %w", err)
	}
	var err error
	if b.ID, err = id.ParseBranchID(rawID); err != nil {
		return nil, fmt.Errorf("parse branch id: %w", err)
	}
	if b.TenantID, err = id.ParseTenantID(rawTenant); err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	return &b, nil
}
