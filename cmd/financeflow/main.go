package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financeflow/internal/amqp"
	"financeflow/internal/backend"
	"financeflow/internal/cache"
	"financeflow/internal/config"
	apphttp "financeflow/internal/http"
	"financeflow/internal/ledger"
	applog "financeflow/internal/log"
	"financeflow/internal/registry"
	"financeflow/internal/service"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	reg, err := registry.New(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open account registry", applog.FieldError, err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	// The flat-file store is always present: exports go through it even
	// when the ledger itself lives in SQLite.
	exporter, err := ledger.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open ledger store", applog.FieldError, err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	store, cleanup, err := backend.Open(backend.Config{
		Type:         backend.Type(cfg.LedgerBackend),
		DataDir:      cfg.DataDir,
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
	if err != nil {
		logger.Error("Failed to open ledger backend", applog.FieldError, err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Ledger backend cleanup failed", applog.FieldError, err)
		}
	}()

	// Ledger events are optional: without AMQP the service runs standalone.
	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		events = client
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	sessions := service.NewSessions(cfg.SessionTTL)
	svc := service.New(reg, store, exporter, events, sessions)

	srv := apphttp.NewServer(":"+cfg.Port, svc, cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sweep expired sessions and stale summary entries in the background
	cacheManager := cache.NewManager()
	cacheManager.Register(sessions)
	cacheManager.Register(srv.SummaryCache())
	cacheManager.StartCleanup(5 * time.Minute)
	defer cacheManager.Stop()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting financeflow server",
		"port", cfg.Port,
		"backend", cfg.LedgerBackend,
		"data_dir", cfg.DataDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
