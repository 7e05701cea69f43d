package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/promodesk/promodesk/internal/app"
	"github.com/promodesk/promodesk/internal/items"
	"github.com/promodesk/promodesk/internal/platform/blob"
	"github.com/promodesk/promodesk/internal/platform/db"
	"github.com/promodesk/promodesk/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	blobStore, err := blob.New(ctx, cfg.BlobConfig())
	if err != nil {
		logger.Error("connect blob store", slog.Any("error", err))
		os.Exit(1)
	}

	itemsService := items.NewService(logger, items.NewRepository(dbpool), blobStore)

	sweepTask, err := jobs.NewImageSweepTask()
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeImageSweep, Handler: jobs.NewImageSweepHandler(itemsService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 10m", Task: sweepTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
