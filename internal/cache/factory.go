package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Backend    string // memory, file, redis, badger, sqlite
	TTL        time.Duration
	Prefix     string
	Dir        string
	RedisAddr  string
	BadgerPath string
	SQLitePath string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend. The returned Closer releases its
// resources and must be called on shutdown.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (ExactCache, io.Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "memory":
		c := NewMemoryExactCache(5 * time.Minute)
		return c, c, nil

	case "file":
		c, err := NewFileExactCache(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("file cache ready", zap.String("dir", c.Dir()))
		return c, nopCloser{}, nil

	case "redis":
		c, err := OpenRedisExactCache(ctx, RedisConfig{Addr: cfg.RedisAddr, Prefix: cfg.Prefix})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
		return c, c, nil

	case "badger":
		c, err := OpenBadgerExactCache(BadgerConfig{
			Path:       cfg.BadgerPath,
			GCInterval: 5 * time.Minute,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	case "sqlite":
		c, err := OpenSQLiteExactCache(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
