package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travelbook/internal/config"
	"travelbook/internal/dispatch"
	"travelbook/internal/httpapi"
	"travelbook/internal/logging"
	"travelbook/internal/payment"
	"travelbook/internal/ratelimit"
	"travelbook/internal/store/postgres"
	"travelbook/internal/telemetry"
	"travelbook/internal/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "travelbook-api"

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

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

	var redisClient redis.Cmdable
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("parse REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		redisClient = client
	}

	st := postgres.NewStore(pool, postgres.WithPaymentHold(cfg.PaymentHold))
	tokens := token.NewService(token.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.JWTTTL}, logger)
	dispatcher := dispatch.New(logger)
	metrics := httpapi.NewMetrics()
	handler := httpapi.NewHandler(httpapi.Deps{
		Store:      st,
		Tokens:     tokens,
		Payments:   payment.NewService(st, payment.NewSandboxGateway(), logger, payment.WithHold(cfg.PaymentHold)),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Currency:   cfg.Currency,
	})
	limiter := ratelimit.New(ratelimit.Config{
		PerMinute:      cfg.RateLimitPerMinute,
		Burst:          cfg.RateLimitBurst,
		AuthPerMinute:  cfg.AuthRateLimitPerMinute,
		AuthBurst:      cfg.AuthRateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
	}, redisClient, dispatcher, logger)

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(logger, metrics, limiter.Handler(handler.Routes())), serviceName)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "service", serviceName, "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
