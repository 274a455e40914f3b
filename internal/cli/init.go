// Package cli consolidates the initialization shared by cmd/pondo and
// cmd/retention-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pondo/internal/amqp"
	"pondo/internal/config"
	applog "pondo/internal/log"
	"pondo/internal/store"
	"pondo/internal/store/memory"
	"pondo/internal/store/sqlite"
)

// Setup installs the default logger and loads the optional .env file.
// Missing .env is fine in production.
func Setup() {
	_ = godotenv.Load()
	applog.Setup()
}

// LoadAndValidateConfig loads configuration, exiting the process on
// validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured key-value backend, exiting on failure.
func OpenStore(cfg *config.Config) store.KV {
	switch cfg.DataBackend {
	case "memory":
		slog.Info("Initialized memory store")
		return memory.New()
	default:
		kv, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			slog.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		slog.Info("Initialized SQLite store", "path", cfg.SQLiteDBPath)
		return kv
	}
}

// OpenAMQP connects to the broker when an URL is configured. A missing URL
// returns nil; archive events are then skipped.
func OpenAMQP(cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		slog.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	slog.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ShutdownTimeout bounds graceful shutdown work after a signal.
const ShutdownTimeout = 30 * time.Second
