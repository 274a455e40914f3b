package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pondo/internal/app"
	"pondo/internal/cli"
	apphttp "pondo/internal/http"
)

func main() {
	cli.Setup()
	cfg := cli.LoadAndValidateConfig()

	kv := cli.OpenStore(cfg)
	amqpClient := cli.OpenAMQP(cfg)

	application := app.New(kv, amqpClient)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := application.Resume(ctx); err != nil {
		slog.Error("Failed to resume session", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, application)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting pondo server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	if err := application.Close(); err != nil {
		slog.Error("Close error", "error", err)
	}
	slog.Info("Server stopped gracefully")
}
