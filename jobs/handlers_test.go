package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

func testDeps() Deps {
	return Deps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestHandleAuditPurgeRejectsBadPayload(t *testing.T) {
	d := testDeps()

	err := d.HandleAuditPurge(context.Background(), asynq.NewTask(TaskAuditPurge, []byte("not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("garbage payload: err = %v, want SkipRetry", err)
	}

	task, err := NewAuditPurgeTask(0)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := d.HandleAuditPurge(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("zero retention: err = %v, want SkipRetry", err)
	}
}

func TestHandleAttendanceRollupRejectsBadDay(t *testing.T) {
	d := testDeps()

	task, err := NewAttendanceRollupTask("not-a-date")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := d.HandleAttendanceRollup(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("bad day: err = %v, want SkipRetry", err)
	}
}

func TestAuditPurgeTaskRoundTrip(t *testing.T) {
	task, err := NewAuditPurgeTask(90 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if task.Type() != TaskAuditPurge {
		t.Fatalf("task type = %q", task.Type())
	}
}
