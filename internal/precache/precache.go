// Package precache warms the result cache with combinations of common
// household substances.
package precache

import (
	"context"
	"sync"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/llm"
	"mixsafe-gateway/internal/metrics"
	"mixsafe-gateway/internal/pipeline"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Substance struct {
	Name string
	CAS  string
}

// CommonSubstances are frequent ingredients of household chemical products.
// The first six are the most hazardous and are also combined in threes.
var CommonSubstances = []Substance{
	{"Sodium Hypochlorite", "7681-52-9"},
	{"Hydrogen Peroxide", "7722-84-1"},
	{"Ammonia", "1336-21-6"},
	{"Sodium Hydroxide", "1310-73-2"},
	{"Hydrochloric Acid", "7647-01-0"},
	{"Sulfuric Acid", "7664-93-9"},
	{"Acetic Acid", "64-19-7"},
	{"Citric Acid", "77-92-9"},
	{"Sodium Lauryl Sulfate", "151-21-3"},
	{"Ethanol", "64-17-5"},
	{"Isopropyl Alcohol", "67-63-0"},
	{"Water", "7732-18-5"},
	{"Sodium Chloride", "7647-14-5"},
	{"Sodium Bicarbonate", "144-55-8"},
}

const hazardousPrefix = 6

// Analyzer is satisfied by *pipeline.Orchestrator.
type Analyzer interface {
	Hybrid(ctx context.Context, req pipeline.Request) (chem.Result, error)
}

type Options struct {
	Workers        int
	RatePerSecond  float64 // <= 0 disables pacing
	Attempts       int
	RetryDelay     time.Duration
	IncludeTriples bool
	UseAI          bool
}

type Report struct {
	Total     int
	Succeeded int
	Failed    [][]Substance
}

// Combinations returns every pair of subs and, when triples is set, every
// triple of the hazardous prefix.
func Combinations(subs []Substance, triples bool) [][]Substance {
	var out [][]Substance
	for i := 0; i < len(subs); i++ {
		for j := i + 1; j < len(subs); j++ {
			out = append(out, []Substance{subs[i], subs[j]})
		}
	}
	if !triples {
		return out
	}
	n := min(hazardousPrefix, len(subs))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				out = append(out, []Substance{subs[i], subs[j], subs[k]})
			}
		}
	}
	return out
}

// Run analyzes every combination. Failed combinations are recorded and
// skipped; Run only returns an error when ctx is cancelled.
func Run(ctx context.Context, a Analyzer, subs []Substance, opts Options, logger *zap.Logger) (Report, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("precache")

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	combos := Combinations(subs, opts.IncludeTriples)
	report := Report{Total: len(combos)}
	var mu sync.Mutex

	logger.Info("precache_start", zap.Int("combinations", len(combos)), zap.Int("workers", opts.Workers))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, combo := range combos {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ok, err := runOne(gctx, a, limiter, combo, opts, logger)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if ok {
				report.Succeeded++
				metrics.PrecacheJobsTotal.WithLabelValues("ok").Inc()
			} else {
				report.Failed = append(report.Failed, combo)
				metrics.PrecacheJobsTotal.WithLabelValues("failed").Inc()
			}
			logger.Debug("precache_progress",
				zap.Int("index", i+1),
				zap.Int("total", len(combos)),
				zap.Int("succeeded", report.Succeeded),
				zap.Int("failed", len(report.Failed)),
			)
			return nil
		})
	}

	err := g.Wait()
	logger.Info("precache_done",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err == nil {
		err = ctx.Err()
	}
	return report, err
}

// runOne returns a non-nil error only for cancellation.
func runOne(ctx context.Context, a Analyzer, limiter *rate.Limiter, combo []Substance, opts Options, logger *zap.Logger) (bool, error) {
	ids := make([]string, len(combo))
	names := make([]string, len(combo))
	for i, s := range combo {
		ids[i], names[i] = s.CAS, s.Name
	}

	for attempt := 0; attempt < opts.Attempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return false, err
		}

		res, err := a.Hybrid(ctx, pipeline.Request{Substances: ids, UseAI: opts.UseAI})
		if err == nil {
			logger.Info("precache_combination_ok",
				zap.Strings("substances", names),
				zap.String("risk_level", string(res.SimpleResponse.RiskLevel)),
				zap.String("ai_status", string(res.AiStatus)),
			)
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		logger.Warn("precache_combination_failed",
			zap.Strings("substances", names),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", opts.Attempts),
			zap.Error(err),
		)
		// no data will not appear on retry
		if chem.IsKind(err, chem.KindNotFound) || chem.IsKind(err, chem.KindInvalidInput) {
			return false, nil
		}
		if attempt+1 < opts.Attempts && opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay(opts.RetryDelay, attempt, err)):
			}
		}
	}
	return false, nil
}

// retryDelay waits base plus jitter, doubled when the failure never reached
// an upstream: a restarting service needs longer than a slow reply.
func retryDelay(base time.Duration, attempt int, err error) time.Duration {
	if llm.IsConnectionLevel(err) {
		base *= 2
	}
	return base + llm.Backoff(base, attempt)
}
