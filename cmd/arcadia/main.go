package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcadia-sms/arcadia/internal/app"
	"github.com/arcadia-sms/arcadia/internal/audit"
	"github.com/arcadia-sms/arcadia/internal/auth"
	"github.com/arcadia-sms/arcadia/internal/authz"
	"github.com/arcadia-sms/arcadia/internal/observability"
	"github.com/arcadia-sms/arcadia/internal/platform/cache"
	"github.com/arcadia-sms/arcadia/internal/platform/db"
	"github.com/arcadia-sms/arcadia/internal/ratelimit"
	"github.com/arcadia-sms/arcadia/internal/staff"
	"github.com/arcadia-sms/arcadia/internal/students"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	recorder := audit.NewAsyncRecorder(audit.NewPGRecorder(dbpool), cfg.AuditQueueSize, logger)
	defer recorder.Close()

	registry := authz.NewRegistry(authz.DefaultConfig())
	evaluator := authz.NewEvaluator(registry, recorder, logger)
	docs := db.NewDocStore(dbpool)

	tokens := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens, evaluator, logger)
	authHandler := auth.NewHandler(logger, authService)

	studentsRepo := students.NewRepository(dbpool)
	studentsService := students.NewService(studentsRepo, evaluator, docs, logger)
	studentsHandler := students.NewHandler(logger, studentsService)

	staffRepo := staff.NewRepository(dbpool)
	staffService := staff.NewService(staffRepo, evaluator, logger)
	staffHandler := staff.NewHandler(logger, staffService)

	var limiter ratelimit.Limiter
	if cfg.RateLimitShared {
		limiter = ratelimit.NewRedisLimiter(redisClient, "ratelimit", logger)
	} else {
		mem := ratelimit.NewMemoryLimiter()
		mem.StartSweep(ctx, cfg.RateLimitSweep, cfg.RateLimitRetention)
		limiter = mem
	}
	rateLimit := ratelimit.NewMiddleware(limiter, cfg.RateLimitPolicies(), logger, metrics, recorder)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		TokenStore:      tokens,
		AuthHandler:     authHandler,
		StudentsHandler: studentsHandler,
		StaffHandler:    staffHandler,
		RateLimit:       rateLimit,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
