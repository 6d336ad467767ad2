package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisExactCache stores results under "<prefix>:<key>" so several
// deployments can share one Redis.
type RedisExactCache struct {
	client redis.UniversalClient
	prefix string
}

type RedisConfig struct {
	Addr   string
	Prefix string
}

// NewRedisExactCache wraps client. Close closes it.
func NewRedisExactCache(client redis.UniversalClient, prefix string) *RedisExactCache {
	return &RedisExactCache{client: client, prefix: prefix}
}

// OpenRedisExactCache dials cfg.Addr and fails fast when Redis does not
// answer a PING.
func OpenRedisExactCache(ctx context.Context, cfg RedisConfig) (*RedisExactCache, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection to %s failed: %w", cfg.Addr, err)
	}
	return NewRedisExactCache(client, cfg.Prefix), nil
}

func (c *RedisExactCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get reports redis.Nil as a plain miss.
func (c *RedisExactCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := c.client.Get(ctx, c.namespaced(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return res, true, nil
}

func (c *RedisExactCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// redis treats 0 as no expiry; negative values would delete the key
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.namespaced(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisExactCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.namespaced(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// DeletePrefix walks matching keys with SCAN and unlinks them in batches,
// so a large purge never blocks the server the way KEYS would.
func (c *RedisExactCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	iter := c.client.Scan(ctx, 0, c.namespaced(prefix)+"*", 500).Iterator()

	var (
		batch   []string
		deleted int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan failed: %w", err)
	}
	return deleted, flush()
}

func (c *RedisExactCache) Close() error {
	return c.client.Close()
}
