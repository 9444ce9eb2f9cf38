package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"
)

// AnalyticsCache stores computed analytics per user. Entries are keyed by a
// per-user version, so invalidation is a single INCR and stale keys simply
// age out.
type AnalyticsCache interface {
	Get(ctx context.Context, userID uint, key string, dst interface{}) (Slot, bool, error)
	Set(ctx context.Context, slot Slot, value interface{}) error
	Invalidate(ctx context.Context, userID uint) error
}

// Slot is the versioned key a Get resolved to. A value computed after a
// miss is written back through it, so it lands under the version that was
// current before the read; an invalidation in between makes it unreachable.
// The zero Slot discards writes.
type Slot string

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type RedisCache struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisCache(client redisClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func versionKey(userID uint) string {
	return fmt.Sprintf("analytics:v:%d", userID)
}

func (c *RedisCache) dataKey(ctx context.Context, userID uint, key string) (string, error) {
	version, err := c.client.Get(ctx, versionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		version = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("analytics:%d:%s:%s", userID, version, key), nil
}

func (c *RedisCache) Get(ctx context.Context, userID uint, key string, dst interface{}) (Slot, bool, error) {
	k, err := c.dataKey(ctx, userID, key)
	if err != nil {
		return "", false, err
	}
	slot := Slot(k)
	raw, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return slot, false, nil
	}
	if err != nil {
		return slot, false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return slot, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return slot, true, nil
}

func (c *RedisCache) Set(ctx context.Context, slot Slot, value interface{}) error {
	if slot == "" {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, string(slot), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID uint) error {
	if err := c.client.Incr(ctx, versionKey(userID)).Err(); err != nil {
		logger.WithError(err).WithField("user_id", userID).Warn("Failed to invalidate analytics cache")
		return err
	}
	return nil
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, uint, string, interface{}) (Slot, bool, error) {
	return "", false, nil
}

func (Noop) Set(context.Context, Slot, interface{}) error { return nil }

func (Noop) Invalidate(context.Context, uint) error { return nil }

// New connects to REDIS_URL, or returns Noop when it is unset.
func New(ctx context.Context, config Config) (AnalyticsCache, func() error, error) {
	if config.RedisURL == "" {
		logger.Info("REDIS_URL not set, analytics cache disabled")
		return Noop{}, func() error { return nil }, nil
	}
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.WithField("addr", opts.Addr).Info("Analytics cache connected")
	return NewRedisCache(client, config.TTL), client.Close, nil
}
