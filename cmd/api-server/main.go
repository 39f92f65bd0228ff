package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/motortrade/salesd/pkg/apiserver"
	"github.com/motortrade/salesd/pkg/config"
	"github.com/motortrade/salesd/pkg/sales"
	"github.com/motortrade/salesd/pkg/scheduler"
	"github.com/motortrade/salesd/pkg/store/postgres"
	redisclient "github.com/motortrade/salesd/pkg/store/redis"
	"github.com/motortrade/salesd/pkg/vehicle"
	"github.com/motortrade/salesd/pkg/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	var rdb *goredis.Client
	redisStore, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		// Rate limiting fails open, so a missing redis degrades rather
		// than blocks startup.
		logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		defer redisStore.Close()
		rdb = redisStore.Client()
	}

	saleRepo := postgres.NewSaleRepository(db.DB())
	logRepo := postgres.NewWebhookLogRepository(db.DB())

	vehicles := vehicle.NewClient(&cfg.Vehicle, logger)
	defer vehicles.Close()

	service := sales.NewService(saleRepo, vehicles, logger)

	notifier := webhook.NewNotifier(&cfg.Webhook, logRepo, logger)
	defer notifier.Close()

	var policy scheduler.ApprovalPolicy = scheduler.ManualApprovalPolicy{}
	if cfg.Scheduler.AutoApprove {
		logger.Warn("automatic approval of pending sales is enabled; not intended for production")
		policy = scheduler.AutoApprovePolicy{}
	}

	reconciler := scheduler.NewReconciler(saleRepo, notifier, policy, logger, scheduler.Options{
		PendingBatch:  cfg.Scheduler.PendingBatch,
		WebhookBatch:  cfg.Webhook.BatchSize,
		MaxAttempts:   cfg.Webhook.MaxAttempts,
		DeliveryDelay: cfg.Webhook.DeliveryDelay,
	})
	reconciler.Start(cfg.Scheduler.IntervalSeconds)
	defer reconciler.Stop()

	server := apiserver.NewServer(service, reconciler, logRepo, rdb, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	go func() {
		logger.Info("starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("starting metrics endpoint", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics server forced to shutdown", zap.Error(err))
	}
}
