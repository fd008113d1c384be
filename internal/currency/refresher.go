package currency

import (
	"context"
	"time"

	"github.com/kislikjeka/walletd/pkg/logger"
)

// SnapshotCache persists the last good snapshot across restarts so a dead
// rate feed does not keep the service from starting.
type SnapshotCache interface {
	Store(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// Refresher periodically re-fetches rates and swaps them into the converter.
type Refresher struct {
	converter *Converter
	provider  Provider
	cache     SnapshotCache // may be nil
	interval  time.Duration
	log       *logger.Logger
}

// NewRefresher creates a refresher. cache may be nil.
func NewRefresher(c *Converter, p Provider, cache SnapshotCache, interval time.Duration, log *logger.Logger) *Refresher {
	return &Refresher{converter: c, provider: p, cache: cache, interval: interval, log: log}
}

// Bootstrap fetches the initial snapshot, falling back to the cached one
// when the provider is unavailable.
func Bootstrap(ctx context.Context, p Provider, cache SnapshotCache, log *logger.Logger) (*Snapshot, error) {
	snap, err := p.Fetch(ctx)
	if err == nil {
		if cache != nil {
			if cacheErr := cache.Store(ctx, snap); cacheErr != nil {
				log.Warn("Failed to cache rate snapshot", "error", cacheErr)
			}
		}
		return snap, nil
	}

	if cache != nil {
		cached, cacheErr := cache.Load(ctx)
		if cacheErr == nil && cached != nil {
			log.Warn("Rate provider unavailable, using cached snapshot",
				"error", err,
				"fetched_at", cached.FetchedAt,
			)
			return cached, nil
		}
	}

	return nil, err
}

// Run refreshes rates on the configured interval until ctx is cancelled.
// Failed fetches keep the previous snapshot and log the age of what is
// still being served.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := r.provider.Fetch(ctx)
			if err != nil {
				stale := time.Since(r.converter.Snapshot().FetchedAt)
				r.log.Warn("Rate refresh failed, keeping previous snapshot",
					"error", err,
					"snapshot_age", stale.String(),
				)
				continue
			}

			r.converter.Swap(snap)
			if r.cache != nil {
				if err := r.cache.Store(ctx, snap); err != nil {
					r.log.Warn("Failed to cache rate snapshot", "error", err)
				}
			}
			r.log.Debug("Rate snapshot refreshed", "base", snap.Base, "rates", len(snap.Rates))
		}
	}
}
