package dal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Billy-Davies-2/draft-engine/internal/logger"
)

const (
	snapshotKeyPrefix = "draft-engine:snapshot:"
	// DefaultSnapshotTTL keeps abandoned drafts from piling up
	DefaultSnapshotTTL = 7 * 24 * time.Hour
)

// RedisSnapshotStore keeps draft snapshots in Redis
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotStore connects to redisURL and verifies the connection
func NewRedisSnapshotStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisSnapshotStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", opt.Addr, "db", opt.DB)
	return NewRedisSnapshotStoreWithClient(client, ttl), nil
}

// NewRedisSnapshotStoreWithClient wraps an existing client. A ttl of 0 disables expiry.
func NewRedisSnapshotStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(id string) string {
	return snapshotKeyPrefix + id
}

func (r *RedisSnapshotStore) SaveSnapshot(ctx context.Context, id string, data []byte) error {
	if err := r.client.Set(ctx, snapshotKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", id, err)
	}
	return nil
}

func (r *RedisSnapshotStore) LoadSnapshot(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, snapshotKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	return data, nil
}

func (r *RedisSnapshotStore) DeleteSnapshot(ctx context.Context, id string) error {
	return r.client.Del(ctx, snapshotKey(id)).Err()
}

func (r *RedisSnapshotStore) ListSnapshots(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, snapshotKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), snapshotKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *RedisSnapshotStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSnapshotStore) Close() error {
	return r.client.Close()
}

// CachedSnapshots writes through to both stores and reads the cache first.
// Cache failures are logged and never fail the call.
type CachedSnapshots struct {
	cache   SnapshotStore
	backing SnapshotStore
}

// NewCachedSnapshots layers cache in front of backing
func NewCachedSnapshots(cache, backing SnapshotStore) *CachedSnapshots {
	return &CachedSnapshots{cache: cache, backing: backing}
}

func (c *CachedSnapshots) SaveSnapshot(ctx context.Context, id string, data []byte) error {
	if err := c.backing.SaveSnapshot(ctx, id, data); err != nil {
		return err
	}
	if err := c.cache.SaveSnapshot(ctx, id, data); err != nil {
		logger.Warn("Snapshot cache write failed", "draft_id", id, "error", err)
	}
	return nil
}

func (c *CachedSnapshots) LoadSnapshot(ctx context.Context, id string) ([]byte, error) {
	data, err := c.cache.LoadSnapshot(ctx, id)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		logger.Warn("Snapshot cache read failed", "draft_id", id, "error", err)
	}

	data, err = c.backing.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SaveSnapshot(ctx, id, data); err != nil {
		logger.Warn("Snapshot cache fill failed", "draft_id", id, "error", err)
	}
	return data, nil
}

func (c *CachedSnapshots) DeleteSnapshot(ctx context.Context, id string) error {
	if err := c.cache.DeleteSnapshot(ctx, id); err != nil {
		logger.Warn("Snapshot cache delete failed", "draft_id", id, "error", err)
	}
	return c.backing.DeleteSnapshot(ctx, id)
}

func (c *CachedSnapshots) ListSnapshots(ctx context.Context) ([]string, error) {
	return c.backing.ListSnapshots(ctx)
}
