// Package postgres persists audit events in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "vendo/pkg/domain"
	"vendo/pkg/platform/audit"
)

// Store appends audit events to the audit_events table.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append records an event. The table is append-only; there is no update path.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (actor_id, tenant_id, module_code, action, decision, reason, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		nullableUUID(uuid.UUID(event.ActorID)),
		nullableUUID(uuid.UUID(event.TenantID)),
		string(event.Module),
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByTenant returns events for a tenant, newest first, for owner-console review.
func (s *Store) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT actor_id, tenant_id, module_code, action, decision, reason, request_id, occurred_at
		FROM audit_events
		WHERE tenant_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event  audit.Event
			actor  sql.NullString
			tenant sql.NullString
			module string
		)
		if err := rows.Scan(&actor, &tenant, &module, &event.Action, &event.Decision, &event.Reason, &event.RequestID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if actor.Valid {
			if parsed, err := uuid.Parse(actor.String); err == nil {
				event.ActorID = id.UserID(parsed)
			}
		}
		if tenant.Valid {
			if parsed, err := uuid.Parse(tenant.String); err == nil {
				event.TenantID = id.TenantID(parsed)
			}
		}
		event.Module = id.ModuleCode(module)
		events = append(events, event)
	}
	return events, rows.Err()
}

// nullableUUID maps the zero UUID to NULL so system-initiated events (the
// trial-expiry sweep) do not reference a fake actor.
func nullableUUID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}
