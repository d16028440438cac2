package packages

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

// PostgresStore persists packages. Module codes live in a jsonb column,
// the set is small and always read whole.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p models.SubscriptionPackage) error {
	codes, err := json.Marshal(p.ModuleCodes)
	if err != nil {
		return fmt.Errorf("marshal module codes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscription_packages (id, code, name, max_users, max_branches, module_codes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID.String(), p.Code, p.Name, p.MaxUsers, p.MaxBranches, codes, p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert package: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, packageID id.PackageID) (*models.SubscriptionPackage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, max_users, max_branches, module_codes, created_at
		FROM subscription_packages WHERE id = $1`, packageID.String())
	return scanPackage(row)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.SubscriptionPackage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, max_users, max_branches, module_codes, created_at
		FROM subscription_packages WHERE code = $1`, code)
	return scanPackage(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]models.SubscriptionPackage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, max_users, max_branches, module_codes, created_at
		FROM subscription_packages ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var out []models.SubscriptionPackage
	for rows.Next() {
		p, err := scanPackageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row *sql.Row) (*models.SubscriptionPackage, error) {
	p, err := scanPackageRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return p, err
}

func scanPackageRow(row rowScanner) (*models.SubscriptionPackage, error) {
	var (
		p     models.SubscriptionPackage
		rawID string
		codes []byte
	)
	if err := row.Scan(&rawID, &p.Code, &p.Name, &p.MaxUsers, &p.MaxBranches, &codes, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan package: %w", err)
	}
	var err error
	if p.ID, err = id.ParsePackageID(rawID); err != nil {
		return nil, fmt.Errorf("parse package id: %w", err)
	}
	if err := json.Unmarshal(codes, &p.ModuleCodes); err != nil {
		return nil, fmt.Errorf("unmarshal module codes: %w", err)
	}
	return &p, nil
}
