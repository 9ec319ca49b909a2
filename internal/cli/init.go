// Package cli provides common CLI initialization utilities shared by
// cmd/fingestor, cmd/fingestor-sync and cmd/fingestor-backup.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fingestor/internal/config"
	applog "fingestor/internal/log"
	"fingestor/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the logger for the given level and format, writing to
// out, and sets it as the slog default. An unknown format falls back to text.
func SetupLogger(level, format, component string, out io.Writer) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Format:    format,
		Component: component,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads the configuration, sets up logging from it
// and validates it. The process exits on validation failure.
func LoadAndValidateConfig(component string, logOutput io.Writer) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat, component, logOutput)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the SQLite repository, migrating it when needed.
// The process exits on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.WithComponent(applog.ComponentStorage).Error("Failed to initialize SQLite repository",
			applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.WithComponent(applog.ComponentStorage).Info("SQLite ready",
		"path", dbPath, "schema_version", sqliteRepo.SchemaVersion())
	return sqliteRepo
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
