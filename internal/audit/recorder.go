package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRecorder writes events into the audit_events table.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder returns a recorder backed by the given pool.
func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

// Record persists the event.
func (r *PGRecorder) Record(ctx context.Context, ev Event) error {
	if r == nil || r.pool == nil {
		return errors.New("audit: recorder not initialised")
	}
	if ev.Type == "" {
		return errors.New("audit: event type required")
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events (event_type, principal_id, role, action, detail, severity, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.Type, ev.PrincipalID, ev.Role, ev.Action, ev.Detail, string(ev.Severity), at)
	return err
}

// Purge deletes events older than the retention window and returns the number
// of rows removed.
func (r *PGRecorder) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("audit: recorder not initialised")
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM audit_events WHERE occurred_at < $1`,
		time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LogRecorder emits events to the application log. Useful as a fallback sink
// when no database is configured, and in tests.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder returns a recorder that logs events at warn level.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record logs the event.
func (r *LogRecorder) Record(_ context.Context, ev Event) error {
	if r == nil || r.logger == nil {
		return nil
	}
	r.logger.Warn("audit event",
		slog.String("type", ev.Type),
		slog.String("principal_id", ev.PrincipalID),
		slog.String("role", ev.Role),
		slog.String("action", ev.Action),
		slog.String("detail", ev.Detail),
		slog.String("severity", string(ev.Severity)),
	)
	return nil
}
