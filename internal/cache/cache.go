// FilePath: internal/cache/cache.go

// Package cache provides a Redis-backed JSON cache used on the hot
// ingestion path (device lookups). A nil client degrades every operation
// to a miss, so the service runs without Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/config"
)

// ErrMiss is returned when a key is absent.
var ErrMiss = redis.Nil

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis. A failed ping is logged and yields a disabled
// cache rather than an error; caching is an optimization here, not a
// dependency.
func New(cfg config.RedisConfig) *Cache {
	if cfg.Host == "" {
		nuts.L.Infof("[Cache] No redis host configured, cache disabled")
		return &Cache{ttl: cfg.CacheTTL}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		nuts.L.Warnf("[Cache] Redis ping failed, cache disabled: %v", err)
		return &Cache{ttl: cfg.CacheTTL}
	}

	nuts.L.Infof("[Cache] Connected to redis at %s:%d", cfg.Host, cfg.Port)
	return &Cache{client: client, ttl: cfg.CacheTTL}
}

func (c *Cache) Available() bool {
	return c.client != nil
}

// Get unmarshals the cached value into dest. Returns ErrMiss when the
// key is absent or the cache is disabled.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrMiss
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
