// Package worker implements the archive retention sweep: entries older than
// the retention window are permanently purged across every user namespace.
// The periodic sweep is the source of truth; AMQP archive events only make
// the next sweep happen sooner.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pondo/internal/amqp"
	"pondo/internal/archive"
	"pondo/internal/metrics"
	"pondo/internal/store"
)

type Retention struct {
	kv       store.KV
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	kick     chan struct{}
}

// NewRetention builds a sweeper. A zero window disables purging entirely.
func NewRetention(kv store.KV, window, interval time.Duration) *Retention {
	return &Retention{
		kv:       kv,
		window:   window,
		interval: interval,
		now:      time.Now,
		kick:     make(chan struct{}, 1),
	}
}

// WithClock overrides the clock, for tests.
func (w *Retention) WithClock(now func() time.Time) *Retention {
	w.now = now
	return w
}

// Sweep scans every archive namespace and purges expired entries. It returns
// the number of entries removed.
func (w *Retention) Sweep(ctx context.Context) (int, error) {
	if w.window <= 0 {
		return 0, nil
	}

	keys, err := w.kv.Keys(ctx, store.ArchivePrefix)
	if err != nil {
		return 0, fmt.Errorf("list archive namespaces: %w", err)
	}

	now := w.now()
	purged := 0
	for _, key := range keys {
		user := strings.TrimPrefix(key, store.ArchivePrefix)
		if user == "" {
			continue
		}
		n, err := w.sweepUser(ctx, user, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sweep archive", "user", user, "error", err)
			continue
		}
		purged += n
	}

	metrics.RetentionSweeps.Inc()
	if purged > 0 {
		metrics.TransactionsPurged.Add(float64(purged))
		slog.InfoContext(ctx, "Retention sweep purged entries", "count", purged)
	}
	return purged, nil
}

func (w *Retention) sweepUser(ctx context.Context, user string, now time.Time) (int, error) {
	arc, err := archive.Load(ctx, w.kv, user)
	if err != nil {
		return 0, err
	}

	expired := arc.Expired(now, w.window)
	for _, id := range expired {
		if _, err := arc.Purge(ctx, id); err != nil {
			return 0, fmt.Errorf("purge %d: %w", id, err)
		}
	}
	return len(expired), nil
}

// HandleArchiveEvent requests a prompt sweep. Coalesces with a pending one.
func (w *Retention) HandleArchiveEvent(msg *amqp.ArchiveEventMessage) error {
	slog.Info("Archive event received", "action", msg.Action, "user", msg.User)
	select {
	case w.kick <- struct{}{}:
	default:
	}
	return nil
}

// Run sweeps on startup, then on every tick and on every archive event, until
// the context ends. amqpClient may be nil; the periodic sweep still runs.
func (w *Retention) Run(ctx context.Context, amqpClient *amqp.Client) error {
	if _, err := w.Sweep(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sweep failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			case <-w.kick:
			}
			if _, err := w.Sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "Sweep failed", "error", err)
			}
		}
	})

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeArchiveEvents(ctx, w.HandleArchiveEvent)
		})
	}

	return g.Wait()
}
