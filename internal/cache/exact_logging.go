package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mixsafe-gateway/internal/metrics"
	"mixsafe-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// LoggingExactCache wraps an ExactCache with logging + metrics.
type LoggingExactCache struct {
	inner   ExactCache
	backend string
}

// NewLoggingExactCache returns a cache that logs and records metrics under
// the given backend label.
func NewLoggingExactCache(inner ExactCache, backend string) ExactCache {
	return &LoggingExactCache{inner: inner, backend: backend}
}

func (c *LoggingExactCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
	}
	metrics.CacheLookupsTotal.WithLabelValues(c.backend, result).Inc()

	fields := append(c.keyFields(key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	)

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("result_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Info("result_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingExactCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CacheWritesTotal.WithLabelValues(c.backend, result).Inc()

	fields := append(c.keyFields(key),
		zap.Int("bytes", len(value)),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", latencyMs),
	)

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("result_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Info("result_cache_set", fields...)
	}

	return err
}

func (c *LoggingExactCache) Delete(ctx context.Context, key string) error {
	err := c.inner.Delete(ctx, key)
	fields := c.keyFields(key)
	if err != nil {
		logging.L(ctx).Error("result_cache_delete", append(fields, zap.Error(err))...)
	} else {
		logging.L(ctx).Info("result_cache_delete", fields...)
	}
	return err
}

// DeletePrefix forwards to the inner cache when it supports prefix deletes.
func (c *LoggingExactCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pd, ok := c.inner.(PrefixDeleter)
	if !ok {
		return 0, fmt.Errorf("cache backend %s cannot delete by prefix", c.backend)
	}
	n, err := pd.DeletePrefix(ctx, prefix)
	fields := []zap.Field{
		zap.String("cache_backend", c.backend),
		zap.String("prefix", prefix),
		zap.Int("deleted", n),
	}
	if err != nil {
		logging.L(ctx).Error("result_cache_delete_prefix", append(fields, zap.Error(err))...)
	} else {
		logging.L(ctx).Info("result_cache_delete_prefix", fields...)
	}
	return n, err
}

func (c *LoggingExactCache) keyFields(key string) []zap.Field {
	fields := []zap.Field{
		zap.String("cache_backend", c.backend),
		zap.String("cache_key", key),
	}
	if parts, ok := parseKey(key); ok {
		fields = append(fields,
			zap.String("cache_version", parts.Version),
			zap.String("hash", parts.Hash),
		)
	}
	return fields
}

// Expecting: pipeline:<VERSION>:<HASH>
func parseKey(key string) (Key, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "pipeline" {
		return Key{}, false
	}
	return Key{Version: parts[1], Hash: parts[2]}, true
}
