package cache

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically deletes expired cache entries
type Janitor struct {
	cache    *EmbeddingCache
	interval time.Duration
	logger   *slog.Logger
}

func NewJanitor(cache *EmbeddingCache, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		cache:    cache,
		interval: interval,
		logger:   logger.With("component", "cache_janitor"),
	}
}

// Run blocks until ctx is cancelled
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	deleted, err := j.cache.CleanupExpired(ctx)
	if err != nil {
		j.logger.Error("cleanup expired embeddings", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		j.logger.Debug("expired embeddings removed", slog.Int64("count", deleted))
	}
}
