package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/motortrade/salesd/pkg/config"
	"github.com/motortrade/salesd/pkg/scheduler"
	"github.com/motortrade/salesd/pkg/store/postgres"
	"github.com/motortrade/salesd/pkg/webhook"
)

// Standalone reconciliation process for running the sweeps without the API.
// Only one instance may run against a given store; the sweeps assume no
// concurrent processor for the same sales.
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

	saleRepo := postgres.NewSaleRepository(db.DB())
	logRepo := postgres.NewWebhookLogRepository(db.DB())

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("reconciler shutting down")
	reconciler.Stop()
}
