package store

import (
	"context"
	"log/slog"
	"time"
)

// StartRetentionWorker runs a background goroutine that periodically deletes
// journal records older than retention. It stops when ctx is done.
func StartRetentionWorker(ctx context.Context, repo Repository, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				Sweep(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep deletes records older than retention once and returns the count.
func Sweep(ctx context.Context, repo Repository, retention time.Duration) int64 {
	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		slog.Error("Retention worker failed to delete old relays", "error", err)
		return 0
	}
	if deleted > 0 {
		slog.Info("Retention worker removed old relays", "count", deleted)
	}
	return deleted
}
