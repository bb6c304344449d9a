package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/api"
	"github.com/statuspush/statuspush/internal/batch"
	"github.com/statuspush/statuspush/internal/config"
	"github.com/statuspush/statuspush/internal/db"
	"github.com/statuspush/statuspush/internal/dispatch"
	"github.com/statuspush/statuspush/internal/domain"
	"github.com/statuspush/statuspush/internal/metrics"
	"github.com/statuspush/statuspush/internal/provider"
	"github.com/statuspush/statuspush/internal/ratelimit"
	"github.com/statuspush/statuspush/internal/repository"
	"github.com/statuspush/statuspush/internal/retry"
	"github.com/statuspush/statuspush/internal/service"
	"github.com/statuspush/statuspush/internal/worker"
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
	limiter := ratelimit.New(ratelimit.Config{
		Capacity:     cfg.RateCapacity,
		MaxPerMinute: cfg.RateMaxPerMinute,
		MaxPerHour:   cfg.RateMaxPerHour,
	})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, func() float64 { return float64(limiter.Len()) })

	deliveryLog := repository.NewPgDeliveryLog(pool)
	prov := provider.NewPusherProvider(
		cfg.PusherHost, cfg.PusherAppID, cfg.PusherKey, cfg.PusherSecret,
		cfg.PusherTimeout, cfg.OutboundPerSec,
	)

	// Dispatch outcomes fan out to metrics and the audit log. Log updates
	// run on their own goroutines so a slow database never delays a flush.
	onDelivered, onDropped := m.DispatchHooks()
	var inflight sync.WaitGroup
	dispatcher := dispatch.New(limiter, prov, logger, dispatch.Hooks{
		OnDelivered: func(p domain.Payload, latency time.Duration) {
			onDelivered(p, latency)
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				if err := deliveryLog.MarkDelivered(context.Background(), p.ID, time.Now().UTC()); err != nil {
					logger.Warn("failed to mark delivered", zap.String("payload_id", p.ID), zap.Error(err))
				}
			}()
		},
		OnDropped: func(p domain.Payload, reason string) {
			onDropped(p, reason)
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				if err := deliveryLog.MarkDropped(context.Background(), p.ID, reason); err != nil {
					logger.Warn("failed to mark dropped", zap.String("payload_id", p.ID), zap.Error(err))
				}
			}()
		},
	})

	batcher := batch.New(batch.Config{
		Enabled: cfg.BatchEnabled,
		MaxSize: cfg.BatchMaxSize,
		MaxWait: cfg.BatchMaxWait,
	}, dispatcher, logger, m.FlushHook())

	retrier := retry.New(retry.Config{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
		Multiplier:   cfg.RetryMultiplier,
	}, dispatcher, logger)

	svc := service.New(batcher, retrier, deliveryLog, logger, m.AcceptedHook())

	// ---- background workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	sweeper := worker.NewSweepWorker(limiter, cfg.SweepInterval, cfg.BucketMaxIdle, logger)
	go sweeper.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(svc, batcher, limiter, reg, logger)
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

	// 2. Stop the background sweeper.
	cancelWorkers()

	// 3. Wait for in-flight audit updates to land.
	inflight.Wait()

	logger.Info("server stopped cleanly")
}
