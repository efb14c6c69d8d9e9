package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minutebar/candlebot/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache, storing one JSON snapshot
// per symbol. Snapshots optionally expire so a bot that has been down for
// longer than its price history is worth does not resume from stale state.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration // zero means no expiry
}

func NewSnapshotCache(client *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: client.Underlying(), ttl: ttl}
}

func snapshotKey(symbol string) string {
	return "session:" + symbol
}

// Save overwrites the snapshot for the symbol.
func (c *SnapshotCache) Save(ctx context.Context, snap domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKey(snap.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save snapshot: %w", err)
	}
	return nil
}

// Load returns domain.ErrNotFound when no snapshot exists for the symbol.
func (c *SnapshotCache) Load(ctx context.Context, symbol string) (domain.SessionSnapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.SessionSnapshot{}, domain.ErrNotFound
		}
		return domain.SessionSnapshot{}, fmt.Errorf("redis: load snapshot: %w", err)
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot for the symbol. Deleting a missing snapshot is
// not an error.
func (c *SnapshotCache) Delete(ctx context.Context, symbol string) error {
	if err := c.rdb.Del(ctx, snapshotKey(symbol)).Err(); err != nil {
		return fmt.Errorf("redis: delete snapshot: %w", err)
	}
	return nil
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)
