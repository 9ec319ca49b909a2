package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"fingestor/internal/amqp"
	"fingestor/internal/cli"
	"fingestor/internal/config"
	applog "fingestor/internal/log"
	"fingestor/internal/services"
	"fingestor/internal/sheets"
	gsheet "fingestor/internal/sheets/google"
	mem "fingestor/internal/sheets/memory"
	"fingestor/internal/worker"
)

func newMirror(ctx context.Context, cfg *config.Config) (sheets.TransactionMirror, error) {
	switch cfg.MirrorBackend {
	case config.MirrorSheets:
		return gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	default:
		return mem.New(), nil
	}
}

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker, os.Stdout)

	logger.Info("Starting fingestor-sync", "mirror", cfg.MirrorBackend, applog.FieldOperation, applog.OpStartup)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	mirror, err := newMirror(context.Background(), cfg)
	if err != nil {
		logger.WithComponent(applog.ComponentSheets).Error("Failed to initialize mirror",
			applog.FieldError, err, "backend", cfg.MirrorBackend)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, mirror)
	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		Interval: cfg.SyncInterval,
		Timeout:  cfg.SyncTimeout,
	})

	// Without a broker the mirror still converges through reconciliation.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WithComponent(applog.ComponentAMQP).Warn("AMQP unavailable, relying on periodic reconciliation",
			applog.FieldError, err)
	} else {
		defer amqpClient.Close()
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Sync processor stop", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return processor.Start(gctx)
	})

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeTransactionEvents(gctx, syncWorker.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Sync worker failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	runs, rewrites := processor.Stats()
	logger.Info("Worker shutdown complete", "reconciliations", runs, "rewrites", rewrites)
}
