package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travelbook/internal/config"
	"travelbook/internal/logging"
	"travelbook/internal/notify"
	"travelbook/internal/store/postgres"
	"travelbook/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceName = "travelbook-notification-worker"

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	shutdownTelemetry := telemetry.Setup(serviceName, telemetry.Config{Endpoint: cfg.OTLPEndpoint, Insecure: cfg.OTLPInsecure}, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	provider := notify.NewProvider(notify.ProviderConfig{
		Kind:         cfg.NotifyProvider,
		WebhookURL:   cfg.NotifyWebhookURL,
		WebhookToken: cfg.NotifyWebhookToken,
	}, logger)
	w := notify.New(postgres.NewStore(pool), provider, notify.Config{
		BatchSize:   cfg.NotifyBatchSize,
		MaxAttempts: cfg.NotifyMaxAttempts,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		notify.Start(ctx, cfg.NotifyPollInterval, w)
	}()
	logger.Info("worker started", "service", serviceName, "interval", cfg.NotifyPollInterval.String())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("worker did not stop in time")
	}
}
