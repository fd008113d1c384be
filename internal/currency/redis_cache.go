package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const snapshotCacheKey = "fx:snapshot:last"

// RedisSnapshotCache stores the last good rate snapshot in Redis.
type RedisSnapshotCache struct {
	client *redis.Client
}

// NewRedisSnapshotCache creates a snapshot cache backed by the given client.
func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

// Store persists the snapshot. No TTL: a stale snapshot beats none at all,
// and the refresher logs snapshot age when the feed is down.
func (c *RedisSnapshotCache) Store(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotCacheKey, data, 0).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load returns the cached snapshot, or (nil, nil) when none is cached.
func (c *RedisSnapshotCache) Load(ctx context.Context) (*Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return ParseSnapshot(data)
}
