package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mediahub/library-notifier/internal/api"
	"github.com/mediahub/library-notifier/internal/config"
	"github.com/mediahub/library-notifier/internal/db"
	"github.com/mediahub/library-notifier/internal/dispatch"
	"github.com/mediahub/library-notifier/internal/events"
	"github.com/mediahub/library-notifier/internal/metrics"
	"github.com/mediahub/library-notifier/internal/payload"
	"github.com/mediahub/library-notifier/internal/queue"
	"github.com/mediahub/library-notifier/internal/ratelimiter"
	"github.com/mediahub/library-notifier/internal/repository"
	"github.com/mediahub/library-notifier/internal/service"
	"github.com/mediahub/library-notifier/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if len(cfg.WebhookURLs) == 0 {
		logger.Warn("no webhook destinations configured; notifications will be built and discarded")
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	pending := queue.NewPending()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, pending.Len)

	repo := repository.NewPgItemRepository(pool)
	limiters := ratelimiter.New(cfg.WebhookURLs, cfg.RateLimit)
	disp := dispatch.NewWebhookDispatcher(cfg.WebhookURLs, cfg.WebhookTimeout, limiters, logger)
	bus := events.NewBus()
	svc := service.NewLibraryService(repo, pending, bus, logger, m.EnqueueHook())

	// ---- notification pipeline ----
	server := payload.ServerInfo{ID: cfg.ServerID, Name: cfg.ServerName, URL: cfg.ServerURL}
	onDispatched, onDropped := m.ReconcilerHooks()
	reconciler := worker.NewReconciler(
		pending, repo, disp, server,
		cfg.ReconcileInterval, cfg.MaxRetries,
		logger,
		worker.Hooks{OnDispatched: onDispatched, OnDropped: onDropped},
	)

	svc.Start()
	reconciler.Start(ctx)

	// ---- HTTP server ----
	router := api.NewRouter(svc, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop observing item-added events.
	svc.Stop()

	// 3. Stop the reconciler; blocks until any in-flight sweep completes.
	reconciler.Stop()

	logger.Info("server stopped cleanly")
}
