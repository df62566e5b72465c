package store

import (
	"context"
	"log/slog"
	"time"
)

const retentionWorkerInterval = time.Hour

// Pruner deletes history older than a cutoff.
type Pruner interface {
	PruneCommands(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartRetentionWorker prunes history older than maxAge once at start and
// then every hour until ctx ends. maxAge <= 0 disables it.
func StartRetentionWorker(ctx context.Context, p Pruner, maxAge time.Duration) {
	startRetentionWorker(ctx, p, maxAge, retentionWorkerInterval)
}

func startRetentionWorker(ctx context.Context, p Pruner, maxAge, interval time.Duration) {
	if maxAge <= 0 {
		slog.Info("History retention disabled")
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "max_age", maxAge)

		pruneExpired(ctx, p, maxAge)
		for {
			select {
			case <-ticker.C:
				pruneExpired(ctx, p, maxAge)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func pruneExpired(ctx context.Context, p Pruner, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	n, err := p.PruneCommands(ctx, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Retention worker: failed to prune history", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Retention worker: pruned history", "deleted", n, "cutoff", cutoff.UTC())
	}
}
