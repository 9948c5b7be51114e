// Command importer runs the workflow-event import pipeline: it consumes the
// local event log, batches events by process instance and category, and
// commits the parsed entities into per-tenant SQLite stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	importer "github.com/fynarfin/ph-ee-importer-rdbms"
	"github.com/fynarfin/ph-ee-importer-rdbms/commit"
	"github.com/fynarfin/ph-ee-importer-rdbms/config"
	"github.com/fynarfin/ph-ee-importer-rdbms/dispatch"
	"github.com/fynarfin/ph-ee-importer-rdbms/eventlog"
	"github.com/fynarfin/ph-ee-importer-rdbms/flow"
	"github.com/fynarfin/ph-ee-importer-rdbms/observability"
	"github.com/fynarfin/ph-ee-importer-rdbms/parser"
	"github.com/fynarfin/ph-ee-importer-rdbms/store/sqlite"
	"github.com/fynarfin/ph-ee-importer-rdbms/tenant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "importer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log := observability.NewLogger(os.Stdout, level)

	flows, err := flow.Load(cfg.FlowFile)
	if err != nil {
		return err
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	logOpts := eventlog.DefaultOptions()
	logOpts.Partitions = cfg.Partitions
	logOpts.Topic = cfg.Topic
	source, err := eventlog.Open(cfg.LogDir, logOpts)
	if err != nil {
		return err
	}
	defer source.Close()

	directory := sqlite.NewDirectory(cfg.DataDir, cfg.Tenants)
	defer directory.Close()

	pipeline := importer.New(
		source,
		tenant.NewResolver(flows, directory, log),
		dispatch.NewDispatcher(parser.New(), dispatch.Options{
			DumpTimestamps: cfg.DumpEventTimestamps,
		}, log),
		commit.NewCommitter(sqlite.Repositories{}, log),
		importer.WithTopic(cfg.Topic),
		importer.WithWindow(cfg.WindowWidth, cfg.Grace),
		importer.WithPollInterval(cfg.PollInterval),
		importer.WithFetchSize(cfg.FetchSize),
		importer.WithLogger(log),
		importer.WithMetrics(metrics),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting importer",
		"topic", cfg.Topic, "partitions", cfg.Partitions,
		"window", cfg.WindowWidth, "grace", cfg.Grace, "tenants", cfg.Tenants)

	if err := pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("importer stopped")
	return nil
}
