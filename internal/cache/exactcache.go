package cache

import (
	"context"
	"time"
)

// ExactCache is the byte-level store behind ResultStore.
// Implemented by memory (dev), file (single node), redis, badger and sqlite.
//
// A ttl <= 0 passed to Set means "no expiry".
type ExactCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter drops every entry whose key starts with prefix and reports
// how many went. All bundled backends implement it.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
