// Command fingestor-backup exports the database to a backup document or
// restores one.
//
//	fingestor-backup export [-o backup.json]
//	fingestor-backup import -i backup.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fingestor/internal/amqp"
	"fingestor/internal/cli"
	applog "fingestor/internal/log"
	"fingestor/internal/services"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fingestor-backup export [-o file] | import -i file")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	command, args := os.Args[1], os.Args[2:]

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentBackup, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// A restore is announced so the mirror worker rebuilds right away.
	var events services.EventPublisher
	if cfg.EventsEnabled {
		if client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
			logger.Warn("AMQP unavailable, restore will not be announced", applog.FieldError, err)
		} else {
			events = client
		}
	}
	svc := services.NewFinanceService(repo, events)
	defer svc.Close()

	var err error
	switch command {
	case "export":
		err = runExport(ctx, svc, args)
		if err == nil {
			logger.Info("Backup exported", applog.FieldOperation, applog.OpExport)
		}
	case "import":
		err = runImport(ctx, svc, logger, args)
	default:
		usage()
	}
	if err != nil {
		logger.Error("Backup command failed", applog.FieldError, err, applog.FieldOperation, command)
		svc.Close()
		os.Exit(1)
	}
}

func runExport(ctx context.Context, svc *services.FinanceService, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	output := fs.String("o", "-", "output file, - for stdout")
	fs.Parse(args)

	var w io.Writer = os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create %s: %w", *output, err)
		}
		defer f.Close()
		w = f
	}
	return svc.Export(ctx, w)
}

func runImport(ctx context.Context, svc *services.FinanceService, logger *applog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	input := fs.String("i", "", "backup file to restore, - for stdin")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("import needs -i")
	}

	var r io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			return fmt.Errorf("open %s: %w", *input, err)
		}
		defer f.Close()
		r = f
	}

	counts, err := svc.Import(ctx, r)
	if err != nil {
		return err
	}
	logger.Info("Backup restored", "counts", counts, applog.FieldOperation, applog.OpImport)
	return nil
}
