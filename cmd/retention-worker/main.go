package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"pondo/internal/cli"
	"pondo/internal/worker"
)

func main() {
	cli.Setup()
	cfg := cli.LoadAndValidateConfig()

	slog.Info("Starting retention worker",
		"window", cfg.RetentionWindow,
		"interval", cfg.SweepInterval)

	kv := cli.OpenStore(cfg)
	defer kv.Close()

	amqpClient := cli.OpenAMQP(cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	w := worker.NewRetention(kv, cfg.RetentionWindow, cfg.SweepInterval)
	if err := w.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Retention worker failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Retention worker stopped")
}
