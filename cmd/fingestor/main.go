package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fingestor/internal/amqp"
	"fingestor/internal/cli"
	apphttp "fingestor/internal/http"
	applog "fingestor/internal/log"
	"fingestor/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp, os.Stdout)

	logger.Info("Starting fingestor", applog.FieldOperation, applog.OpStartup)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Events are optional: the mirror worker reconciles periodically, so
	// the API keeps serving without a broker.
	var events services.EventPublisher
	if cfg.EventsEnabled {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(applog.ComponentAMQP).Warn("AMQP unavailable, transaction events disabled",
				applog.FieldError, err)
		} else {
			events = client
			logger.WithComponent(applog.ComponentAMQP).Info("Publishing transaction events", "exchange", cfg.AMQPExchange)
		}
	}

	svc := services.NewFinanceService(repo, events)

	srv := apphttp.NewServer(cfg.Addr(), svc, apphttp.Options{
		Logger:          logger,
		WritesPerMinute: cfg.WritesPerMinute,
		TrustedProxies:  cfg.TrustedProxies,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close finance service", applog.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port, "db", cfg.SQLiteDBPath, "events", events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
