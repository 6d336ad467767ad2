package main

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"mixsafe-gateway/internal/cache"
	"mixsafe-gateway/internal/classify"
	"mixsafe-gateway/internal/config"
	"mixsafe-gateway/internal/endpoint"
	"mixsafe-gateway/internal/links"
	"mixsafe-gateway/internal/llm"
	"mixsafe-gateway/internal/pipeline"
	"mixsafe-gateway/internal/reactivity"
	"mixsafe-gateway/internal/summary"
	"mixsafe-gateway/internal/translate"
)

// app is the fully wired analysis stack shared by every subcommand.
type app struct {
	summary  *summary.Service
	endpoint *endpoint.Cell
	pipeline *pipeline.Orchestrator
	closers  []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// openStore opens the configured cache backend wrapped in the logging
// decorator.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.ResultStore, io.Closer, error) {
	exactCache, closer, err := cache.Open(ctx, cache.Config{
		Backend:    cfg.Cache.Backend,
		TTL:        cfg.Cache.TTL,
		Prefix:     cfg.Cache.Prefix,
		Dir:        cfg.Cache.Dir,
		RedisAddr:  cfg.Cache.RedisAddr,
		BadgerPath: cfg.Cache.BadgerPath,
		SQLitePath: cfg.Cache.SQLitePath,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	exactCache = cache.NewLoggingExactCache(exactCache, cfg.Cache.Backend)
	return cache.NewResultStore(exactCache, cfg.Cache.TTL), closer, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	// ----- Cache -----
	store, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)

	// ----- Upstream HTTP client -----
	client := llm.NewClient(llm.Config{UserAgent: "mixsafe-gateway/" + version}, logger)
	a.closers = append(a.closers, client)

	// ----- Reactivity -----
	static, err := reactivity.NewStaticFetcher()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	var fetcher reactivity.Fetcher = static
	if cfg.Reactivity.URL != "" {
		fetcher = reactivity.Chain{
			reactivity.NewHTTPFetcher(client, cfg.Reactivity.URL, cfg.Reactivity.Timeout),
			static,
		}
		logger.Info("remote reactivity lookup enabled", zap.String("url", cfg.Reactivity.URL))
	}

	// ----- Safety links -----
	agg, err := links.New()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	// ----- AI stages -----
	a.summary = summary.NewService(client, summary.Config{
		HealthTimeout:  cfg.AI.HealthTimeout,
		SummaryTimeout: cfg.AI.SummaryTimeout,
	}, logger)
	a.endpoint = endpoint.NewCell(cfg.AI.URL)

	a.pipeline = pipeline.New(pipeline.Deps{
		Fetcher:      fetcher,
		Classifier:   classify.New(),
		Summarizer:   a.summary,
		Translator:   newTranslator(cfg.Translate, client, logger),
		Links:        agg,
		Store:        store,
		Endpoint:     a.endpoint,
		CacheVersion: cfg.Cache.Version,
	})

	logger.Info("pipeline ready",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("cache_version", cfg.Cache.Version),
		zap.Bool("ai_configured", a.endpoint.Configured()),
		zap.String("translate_backend", cfg.Translate.Backend),
		zap.Bool("translate_enabled", cfg.Translate.TranslationEnabled()),
	)
	return a, nil
}

func newTranslator(cfg config.TranslateConfig, client *llm.Client, logger *zap.Logger) translate.Translator {
	if !cfg.TranslationEnabled() {
		reason := "Gemini API key not configured"
		if cfg.Backend == "openai" {
			reason = "OpenAI API key not configured"
		}
		logger.Warn("translation disabled", zap.String("reason", reason))
		return translate.Disabled{Reason: reason}
	}

	var gen translate.Generator
	switch cfg.Backend {
	case "openai":
		gen = translate.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout)
	default:
		gen = translate.NewGeminiGenerator(client, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.Timeout)
	}
	return translate.NewService(gen, translate.Config{
		Language:   cfg.Language,
		Attempts:   cfg.Attempts,
		RetryDelay: time.Second,
	}, logger)
}
