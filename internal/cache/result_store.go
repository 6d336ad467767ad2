package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// ResultStore persists pipeline results. It never fails its caller: read
// problems are misses and write problems are logged and dropped.
type ResultStore struct {
	cache ExactCache
	ttl   time.Duration
}

func NewResultStore(c ExactCache, ttl time.Duration) *ResultStore {
	return &ResultStore{cache: c, ttl: ttl}
}

// Get returns the stored result for key, if a readable one exists.
func (s *ResultStore) Get(ctx context.Context, key Key) (chem.Result, bool) {
	data, ok, err := s.cache.Get(ctx, key.String())
	if err != nil {
		logging.L(ctx).Warn("result_store_read_error", zap.String("hash", key.Hash), zap.Error(err))
		return chem.Result{}, false
	}
	if !ok {
		return chem.Result{}, false
	}

	var res chem.Result
	if err := json.Unmarshal(data, &res); err != nil {
		logging.L(ctx).Warn("result_store_corrupt_entry", zap.String("hash", key.Hash), zap.Error(err))
		return chem.Result{}, false
	}
	return res, true
}

// Put stores res under key. Failures are logged, not returned.
func (s *ResultStore) Put(ctx context.Context, key Key, res chem.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		logging.L(ctx).Warn("result_store_marshal_error", zap.String("hash", key.Hash), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key.String(), data, s.ttl); err != nil {
		logging.L(ctx).Warn("result_store_write_error", zap.String("hash", key.Hash), zap.Error(err))
	}
}

// Purge removes the entry for key.
func (s *ResultStore) Purge(ctx context.Context, key Key) error {
	return s.cache.Delete(ctx, key.String())
}

// PurgeVersion drops every entry stored under version.
func (s *ResultStore) PurgeVersion(ctx context.Context, version string) (int, error) {
	pd, ok := s.cache.(PrefixDeleter)
	if !ok {
		return 0, errors.New("cache backend cannot purge by version")
	}
	return pd.DeletePrefix(ctx, VersionPrefix(version))
}
