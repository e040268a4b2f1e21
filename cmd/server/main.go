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

	"github.com/limshub/vessel-queue/internal/api"
	"github.com/limshub/vessel-queue/internal/config"
	"github.com/limshub/vessel-queue/internal/db"
	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/identity"
	"github.com/limshub/vessel-queue/internal/metrics"
	"github.com/limshub/vessel-queue/internal/ratelimiter"
	"github.com/limshub/vessel-queue/internal/report"
	"github.com/limshub/vessel-queue/internal/repository"
	"github.com/limshub/vessel-queue/internal/routing"
	"github.com/limshub/vessel-queue/internal/service"
	"github.com/limshub/vessel-queue/internal/vessel"
	"github.com/limshub/vessel-queue/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
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
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := repository.NewPgQueueRepository(pool)
	vessels := vessel.NewPgResolver(pool)
	users := identity.NewStaticResolver(nil)

	// Completion of the sample-ready queue fans vessels out into the
	// type-specific plating queues based on product-type metadata.
	handlers := routing.NewRegistry()
	handlers.Register(domain.QueueSampleReady,
		routing.NewProductTypeRouter(domain.QueueSampleReady, routing.DefaultProductRules, vessels, m, logger))

	svc := service.NewQueueService(repo, vessels, users, handlers, m, logger)

	gen := report.NewGenerator()
	gen.Register(domain.QueuePlatingArray, report.PlatingFormatter{})
	gen.Register(domain.QueuePlatingSequencing, report.PlatingFormatter{})

	limiter := ratelimiter.New(cfg.RateLimit)

	// ---- background workers ----
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	depthW := worker.NewDepthWorker(repo, m, cfg.DepthInterval, logger)
	go depthW.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(svc, gen, limiter, reg, logger)
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

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancelWorkers()
	logger.Info("server stopped cleanly")
}
