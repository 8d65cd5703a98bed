// Package jobs holds the background task definitions and the asynq worker
// that runs them.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPurge deletes audit events past the retention horizon.
	TaskAuditPurge = "audit:purge"
	// TaskAttendanceRollup aggregates raw attendance marks into per-branch
	// daily totals.
	TaskAttendanceRollup = "attendance:rollup"
)

// AuditPurgePayload carries the retention horizon for a purge run.
type AuditPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditPurgeTask constructs an asynq task for purging old audit events.
func NewAuditPurgeTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(AuditPurgePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, body, asynq.Queue(QueueDefault)), nil
}

// AttendanceRollupPayload names the day to aggregate, empty for yesterday.
type AttendanceRollupPayload struct {
	Day string `json:"day,omitempty"`
}

// NewAttendanceRollupTask constructs an asynq task for the daily rollup.
func NewAttendanceRollupTask(day string) (*asynq.Task, error) {
	body, err := json.Marshal(AttendanceRollupPayload{Day: day})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAttendanceRollup, body, asynq.Queue(QueueDefault)), nil
}
