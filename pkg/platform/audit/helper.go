package audit

import (
	"context"
	"log/slog"
)

// Publisher is the minimal emission contract services depend on.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Log writes an audit-style line to the text logger and forwards the event to
// the audit publisher. Either sink may be nil; services call this from hot
// paths so emission failures are logged, never propagated.
func Log(ctx context.Context, logger *slog.Logger, publisher Publisher, event Event, attrs ...any) {
	if logger != nil {
		args := append(attrs,
			"event", event.Action,
			"tenant_id", event.TenantID,
			"decision", event.Decision,
			"reason", event.Reason,
			"log_type", "audit",
		)
		logger.InfoContext(ctx, event.Action, args...)
	}
	if publisher != nil {
		if err := publisher.Emit(ctx, event); err != nil && logger != nil {
			logger.WarnContext(ctx, "audit emit failed", "error", err, "event", event.Action)
		}
	}
}
