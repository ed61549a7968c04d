package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/app"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/platform/cache"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/platform/db"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/stock"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/jobs"
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

	auditLogger := shared.NewAuditLogger(pool)
	sequences := shared.NewSequenceStore(pool)
	registry := stock.NewRegistry(pool)
	stockRepo := stock.NewRepository(pool)
	onhandCache := stock.NewCache(redisClient, cfg.OnHandCacheTTL)
	stockService := stock.NewService(stockRepo, registry, sequences, auditLogger, onhandCache)

	warmupJob := jobs.NewOnHandWarmupJob(stockService, pool, logger, nil)
	staleJob := jobs.NewStaleScanJob(pool, logger, nil)

	warmupTask, err := jobs.NewOnHandWarmupTask(200)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	staleTask, err := jobs.NewStaleScanTask(48)
	if err != nil {
		logger.Error("build stale scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockOnHandWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskDocumentStaleScan, Handler: staleJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: staleTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
