// Package reactivity looks up pairwise reactivity records for a set of
// substance identifiers.
package reactivity

import (
	"context"
	"errors"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// Fetcher returns every known pairwise record for ids. An empty result
// with a nil error means no data, not failure.
type Fetcher interface {
	Fetch(ctx context.Context, ids []string) ([]chem.Record, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ids []string) ([]chem.Record, error)

func (f FetcherFunc) Fetch(ctx context.Context, ids []string) ([]chem.Record, error) {
	return f(ctx, ids)
}

// Chain tries each fetcher in order and returns the first non-empty result.
// If every fetcher comes back empty, the first error seen is returned.
type Chain []Fetcher

func (c Chain) Fetch(ctx context.Context, ids []string) ([]chem.Record, error) {
	var firstErr error
	for i, f := range c {
		records, err := f.Fetch(ctx, ids)
		if err != nil {
			logging.L(ctx).Warn("reactivity_source_failed", zap.Int("source", i), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, firstErr
}
