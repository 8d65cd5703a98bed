package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/arcadia-sms/arcadia/internal/app"
	"github.com/arcadia-sms/arcadia/internal/audit"
	"github.com/arcadia-sms/arcadia/internal/platform/db"
	"github.com/arcadia-sms/arcadia/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	purgeTask, err := jobs.NewAuditPurgeTask(cfg.AuditRetention)
	if err != nil {
		logger.Error("build audit purge task", slog.Any("error", err))
		os.Exit(1)
	}
	rollupTask, err := jobs.NewAttendanceRollupTask("")
	if err != nil {
		logger.Error("build attendance rollup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Deps: jobs.Deps{
			Pool:     pool,
			Recorder: audit.NewPGRecorder(pool),
			Logger:   logger,
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 2 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 1 * * *", Task: rollupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
