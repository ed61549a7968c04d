package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/app"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/documents"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/journals"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/pipeline"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/platform/cache"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/platform/db"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/posting"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/proposal"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/shared"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/internal/stock"
	"github.com/jeanalbertsen-svg/nexus-erp-sub001/jobs"
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

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	sequences := shared.NewSequenceStore(dbpool)
	locker := shared.NewDocumentLocker(redisClient, cfg.PostLockTTL)

	journalRepo := journals.NewRepository(dbpool)
	journalService := journals.NewService(journalRepo, sequences, auditLogger)
	journalsHandler := journals.NewHandler(logger, journalService)

	registry := stock.NewRegistry(dbpool)
	stockRepo := stock.NewRepository(dbpool)
	onhandCache := stock.NewCache(redisClient, cfg.OnHandCacheTTL)
	stockService := stock.NewService(stockRepo, registry, sequences, auditLogger, onhandCache)

	docRepo := documents.NewRepository(dbpool)
	builder := proposal.NewBuilder(proposal.Accounts{
		Inventory: cfg.InventoryAccount,
		Expense:   cfg.ExpenseAccount,
		Payable:   cfg.PayableAccount,
	})
	engine := posting.NewEngine(docRepo, journalService, stockService, locker, idempotencyStore, auditLogger)
	pipelineService := pipeline.NewService(docRepo, builder, engine, registry, sequences, auditLogger)
	pipelineHandler := pipeline.NewHandler(logger, pipelineService)

	stockHandler := stock.NewHandler(logger, stockService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		PipelineHandler: pipelineHandler,
		JournalsHandler: journalsHandler,
		StockHandler:    stockHandler,
		JobHandler:      jobHandler,
		Pool:            dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
