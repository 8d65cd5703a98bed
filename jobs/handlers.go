package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcadia-sms/arcadia/internal/audit"
)

// Deps carries the shared resources task handlers operate on.
type Deps struct {
	Pool     *pgxpool.Pool
	Recorder *audit.PGRecorder
	Logger   *slog.Logger
}

// HandleAuditPurge processes TaskAuditPurge tasks.
func (d Deps) HandleAuditPurge(ctx context.Context, t *asynq.Task) error {
	var payload AuditPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		return asynq.SkipRetry
	}
	removed, err := d.Recorder.Purge(ctx, payload.Retention)
	if err != nil {
		d.Logger.Error("audit purge failed", slog.Any("error", err))
		return err
	}
	d.Logger.Info("audit purge complete", slog.Int64("removed", removed))
	return nil
}

// HandleAttendanceRollup processes TaskAttendanceRollup tasks. The rollup is
// idempotent: re-running a day replaces its totals.
func (d Deps) HandleAttendanceRollup(ctx context.Context, t *asynq.Task) error {
	var payload AttendanceRollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	day := payload.Day
	if day == "" {
		day = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return asynq.SkipRetry
	}

	if d.Pool == nil {
		return asynq.SkipRetry
	}
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO attendance_daily (branch_id, day, present, absent, late)
		SELECT branch_id,
		       $1::date,
		       COUNT(*) FILTER (WHERE status = 'present'),
		       COUNT(*) FILTER (WHERE status = 'absent'),
		       COUNT(*) FILTER (WHERE status = 'late')
		FROM attendance
		WHERE day = $1::date
		GROUP BY branch_id
		ON CONFLICT (branch_id, day) DO UPDATE
		SET present = EXCLUDED.present,
		    absent  = EXCLUDED.absent,
		    late    = EXCLUDED.late`, day)
	if err != nil {
		d.Logger.Error("attendance rollup failed", slog.String("day", day), slog.Any("error", err))
		return err
	}
	d.Logger.Info("attendance rollup complete", slog.String("day", day))
	return nil
}
