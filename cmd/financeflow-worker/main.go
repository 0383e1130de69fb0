package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"financeflow/internal/amqp"
	"financeflow/internal/config"
	applog "financeflow/internal/log"
	"financeflow/internal/sheets"
	gsheet "financeflow/internal/sheets/google"
	"financeflow/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfgLog := applog.DefaultConfig()
	cfgLog.Component = applog.ComponentWorker
	logger := applog.New(cfgLog)
	applog.SetDefault(logger)

	logger.Info("Starting financeflow-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	// The spreadsheet mirror is optional: without it events are logged
	// and acknowledged so the queue keeps draining.
	var sink sheets.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		sink = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mirror everything that queued up while the worker was down before
	// switching to one-at-a-time consumption. A failed drain requeues the
	// batch, so the consume loop below retries the same events.
	drained, err := amqpClient.DrainBacklog(ctx, func(events []*amqp.LedgerEvent) error {
		return mirror.MirrorBacklog(ctx, events, cfg.MirrorConcurrency)
	})
	if err != nil {
		logger.Warn("Backlog drain failed, events requeued", applog.FieldError, err)
	} else if drained > 0 {
		logger.Info("Backlog mirrored",
			applog.FieldRecords, drained,
			"concurrency", cfg.MirrorConcurrency)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(ctx, func(ev *amqp.LedgerEvent) error {
			return mirror.HandleLedgerEvent(ctx, ev)
		})
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker failed", applog.FieldError, err)
		os.Exit(1)
	}

	// Give in-flight handlers a moment before the AMQP channel closes
	time.Sleep(time.Second)
	logger.Info("Worker shutdown complete")
}
