package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"vendo/internal/sentinel"
	"vendo/internal/tenant/models"
	id "vendo/pkg/domain"
)

// PostgresStore persists tenants in the tenants table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tenantColumns = `id, slug, name, business_category, status, package_id,
	trial_starts_at, trial_ends_at, payment_ref, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, t models.Tenant) error {
	query := fmt.Sprintf(`INSERT INTO tenants (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, tenantColumns)
	_, err := s.db.ExecContext(ctx, query,
		t.ID.String(), t.Slug, t.Name, t.BusinessCategory, string(t.Status),
		nullableUUID(t.PackageID.String()), t.TrialStartsAt, t.TrialEndsAt,
		nullableText(t.PaymentRef), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns)
	return s.scanOne(s.db.QueryRowContext(ctx, query, tenantID.String()))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE slug = $1`, tenantColumns)
	return s.scanOne(s.db.QueryRowContext(ctx, query, slug))
}

// Update applies the row only when the stored status matches expected.
// Zero rows affected with an existing tenant signals a lost race.
func (s *PostgresStore) Update(ctx context.Context, t models.Tenant, expected models.SubscriptionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET slug = $2, name = $3, business_category = $4, status = $5, package_id = $6,
		    trial_starts_at = $7, trial_ends_at = $8, payment_ref = $9, updated_at = $10
		WHERE id = $1 AND status = $11`,
		t.ID.String(), t.Slug, t.Name, t.BusinessCategory, string(t.Status),
		nullableUUID(t.PackageID.String()), t.TrialStartsAt, t.TrialEndsAt,
		nullableText(t.PaymentRef), t.UpdatedAt, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant rows affected: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, t.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrStaleState
	}
	return nil
}

func (s *PostgresStore) ListExpiredTrials(ctx context.Context, asOf time.Time) ([]models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE status = $1 AND trial_ends_at <= $2 ORDER BY slug`, tenantColumns)
	rows, err := s.db.QueryContext(ctx, query, string(models.StatusTrialActive), asOf)
	if err != nil {
		return nil, fmt.Errorf("list expired trials: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants ORDER BY slug`, tenantColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Tenant, error) {
	var (
		t          models.Tenant
		rawID      string
		status     string
		packageID  sql.NullString
		paymentRef sql.NullString
	)
	err := row.Scan(&rawID, &t.Slug, &t.Name, &t.BusinessCategory, &status, &packageID,
		&t.TrialStartsAt, &t.TrialEndsAt, &paymentRef, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	if t.ID, err = id.ParseTenantID(rawID); err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	if t.Status, err = models.ParseSubscriptionStatus(status); err != nil {
		return nil, err
	}
	if packageID.Valid {
		if t.PackageID, err = id.ParsePackageID(packageID.String); err != nil {
			return nil, fmt.Errorf("parse package id: %w", err)
		}
	}
	t.PaymentRef = paymentRef.String
	return &t, nil
}

func (s *PostgresStore) scanMany(rows *sql.Rows) ([]models.Tenant, error) {
	var out []models.Tenant
	for rows.Next() {
		var (
			t          models.Tenant
			rawID      string
			status     string
			packageID  sql.NullString
			paymentRef sql.NullString
		)
		err := rows.Scan(&rawID, &t.Slug, &t.Name, &t.BusinessCategory, &status, &packageID,
			&t.TrialStartsAt, &t.TrialEndsAt, &paymentRef, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		if t.ID, err = id.ParseTenantID(rawID); err != nil {
			return nil, fmt.Errorf("parse tenant id: %w", err)
		}
		if t.Status, err = models.ParseSubscriptionStatus(status); err != nil {
			return nil, err
		}
		if packageID.Valid {
			if t.PackageID, err = id.ParsePackageID(packageID.String); err != nil {
				return nil, fmt.Errorf("parse package id: %w", err)
			}
		}
		t.PaymentRef = paymentRef.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableUUID(v string) any {
	if v == "" || v == "00000000-0000-0000-0000-000000000000" {
		return nil
	}
	return v
}

func nullableText(v string) any {
	if v == "" {
		return nil
	}
	return v
}
