// Package pipeline runs the fetch, classify, summarize, translate and link
// stages for one substance set and owns the result cache boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mixsafe-gateway/internal/cache"
	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/classify"
	"mixsafe-gateway/internal/endpoint"
	"mixsafe-gateway/internal/links"
	"mixsafe-gateway/internal/metrics"
	"mixsafe-gateway/internal/reactivity"
	"mixsafe-gateway/internal/summary"
	"mixsafe-gateway/internal/translate"
	"mixsafe-gateway/pkg/logging/logging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("mixsafe.pipeline")

// Summarizer is the part of summary.Service the pipeline uses.
type Summarizer interface {
	Health(ctx context.Context, url string) summary.Health
	Summarize(ctx context.Context, url string, c chem.Classification) (string, error)
	AnalyzeRecords(ctx context.Context, url string, records []chem.Record) (string, error)
}

// Store is the result cache as seen by the pipeline.
type Store interface {
	Get(ctx context.Context, key cache.Key) (chem.Result, bool)
	Put(ctx context.Context, key cache.Key, res chem.Result)
}

type Deps struct {
	Fetcher      reactivity.Fetcher
	Classifier   classify.Classifier
	Summarizer   Summarizer
	Translator   translate.Translator
	Links        *links.Aggregator
	Store        Store
	Endpoint     *endpoint.Cell
	CacheVersion string

	// test hooks
	Now   func() time.Time
	NewID func() string
}

// Orchestrator is safe for concurrent use. Concurrent misses for the same
// key share one run.
type Orchestrator struct {
	deps  Deps
	group singleflight.Group
}

func New(d Deps) *Orchestrator {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Endpoint == nil {
		d.Endpoint = endpoint.NewCell("")
	}
	return &Orchestrator{deps: d}
}

// Request is one analysis request after transport decoding.
type Request struct {
	Substances []string
	UseAI      bool
}

// AnalyzeResult is the uncached response of Analyze.
type AnalyzeResult struct {
	Success        bool                `json:"success"`
	Records        []chem.Record       `json:"cameo_results"`
	Classification chem.Classification `json:"rule_based_analysis"`
	AIAnalysis     *string             `json:"ai_analysis"`
	AiStatus       chem.AiStatus       `json:"ai_status"`
}

// Hybrid runs the full cached pipeline. A cache hit is returned unchanged
// and no collaborator is called.
func (o *Orchestrator) Hybrid(ctx context.Context, req Request) (chem.Result, error) {
	ids := cleanIDs(req.Substances)
	if len(ids) == 0 {
		return chem.Result{}, chem.E("pipeline.hybrid", chem.KindInvalidInput, "no substance identifiers given", nil)
	}
	key := cache.BuildKey(ids, o.deps.CacheVersion)

	ctx, span := tracer.Start(ctx, "pipeline.Hybrid", trace.WithAttributes(
		attribute.String("cache.hash", key.Hash),
		attribute.Int("substances", len(ids)),
		attribute.Bool("use_ai", req.UseAI),
	))
	defer span.End()

	log := logging.L(ctx).With(zap.String("hash", key.Hash))

	if res, ok := o.cacheCheck(ctx, key); ok {
		log.Info("cache_decision", zap.String("decision", "hit"))
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return res, nil
	}
	log.Info("cache_decision", zap.String("decision", "miss"))

	// Shared runs must not die with the first caller's connection.
	runCtx := context.WithoutCancel(ctx)
	v, err, shared := o.group.Do(key.String()+fmt.Sprintf("|ai=%t", req.UseAI), func() (interface{}, error) {
		res, err := o.run(runCtx, ids, req.UseAI)
		if err != nil {
			return chem.Result{}, err
		}
		o.deps.Store.Put(runCtx, key, res)
		return res, nil
	})
	if shared {
		log.Debug("pipeline_run_shared")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, chem.KindOf(err).String())
		return chem.Result{}, err
	}
	span.SetStatus(codes.Ok, "")
	return v.(chem.Result), nil
}

// Analyze fetches and classifies, then optionally asks the AI service to
// analyze the raw records. Nothing is cached and no links are attached.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (AnalyzeResult, error) {
	ids := cleanIDs(req.Substances)
	if len(ids) == 0 {
		return AnalyzeResult{}, chem.E("pipeline.analyze", chem.KindInvalidInput, "no substance identifiers given", nil)
	}

	ctx, span := tracer.Start(ctx, "pipeline.Analyze")
	defer span.End()

	records, classification, err := o.fetchAndClassify(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return AnalyzeResult{}, err
	}

	out := AnalyzeResult{
		Success:        true,
		Records:        records,
		Classification: classification,
		AiStatus:       chem.AiSkipped,
	}
	if !req.UseAI {
		return out, nil
	}

	url := o.deps.Endpoint.Get()
	if url == "" {
		out.AiStatus = chem.AiUnavailable
		return out, nil
	}

	start := time.Now()
	text, err := o.deps.Summarizer.AnalyzeRecords(ctx, url, records)
	switch {
	case errors.Is(err, summary.ErrUnhealthy):
		metrics.ObserveStage("analyze_records", "unavailable", time.Since(start))
		out.AiStatus = chem.AiUnavailable
	case err != nil:
		metrics.ObserveStage("analyze_records", "error", time.Since(start))
		placeholder := "AI analysis unavailable: " + reason(err)
		out.AIAnalysis = &placeholder
		out.AiStatus = chem.AiError
	default:
		metrics.ObserveStage("analyze_records", "ok", time.Since(start))
		out.AIAnalysis = &text
		out.AiStatus = chem.AiSuccess
	}
	metrics.AIStatusTotal.WithLabelValues(string(out.AiStatus)).Inc()
	return out, nil
}

// Simple returns the rule-based classification only.
func (o *Orchestrator) Simple(ctx context.Context, substances []string) (chem.Classification, error) {
	ids := cleanIDs(substances)
	if len(ids) == 0 {
		return chem.Classification{}, chem.E("pipeline.simple", chem.KindInvalidInput, "no substance identifiers given", nil)
	}

	ctx, span := tracer.Start(ctx, "pipeline.Simple")
	defer span.End()

	_, classification, err := o.fetchAndClassify(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return chem.Classification{}, err
	}
	return classification, nil
}

// AnalyzeRecords runs only the AI analysis over caller-supplied records.
func (o *Orchestrator) AnalyzeRecords(ctx context.Context, records []chem.Record) (string, error) {
	url := o.deps.Endpoint.Get()
	if url == "" {
		return "", chem.E("pipeline.analyze_records", chem.KindUpstreamUnavailable, "AI API URL not configured", nil)
	}
	return o.deps.Summarizer.AnalyzeRecords(ctx, url, records)
}

func (o *Orchestrator) run(ctx context.Context, ids []string, useAI bool) (chem.Result, error) {
	records, classification, err := o.fetchAndClassify(ctx, ids)
	if err != nil {
		return chem.Result{}, err
	}

	english, localized, status := o.aiStages(ctx, useAI, classification)
	metrics.AIStatusTotal.WithLabelValues(string(status)).Inc()

	_, span := tracer.Start(ctx, "pipeline.aggregate")
	start := time.Now()
	bundle := o.deps.Links.Aggregate(classification.DangerousPairs, classification.CautionPairs)
	metrics.ObserveStage("aggregate", "ok", time.Since(start))
	span.End()

	simple := chem.SimpleResponse{
		RiskLevel: classification.Summary.OverallStatus,
		Message:   classification.Summary.Message,
	}
	if status == chem.AiSuccess && localized != nil {
		simple.Message = *localized
	}

	logging.L(ctx).Info("pipeline_complete",
		zap.Int("records", len(records)),
		zap.String("overall_status", string(classification.Summary.OverallStatus)),
		zap.String("ai_status", string(status)),
	)

	return chem.Result{
		AnalysisID:       o.deps.NewID(),
		CreatedAt:        o.deps.Now().UTC(),
		Success:          true,
		Substances:       ids,
		Classification:   classification,
		SummaryEnglish:   english,
		SummaryLocalized: localized,
		AiStatus:         status,
		SimpleResponse:   simple,
		SafetyLinks:      bundle,
	}, nil
}

func (o *Orchestrator) cacheCheck(ctx context.Context, key cache.Key) (chem.Result, bool) {
	start := time.Now()
	res, ok := o.deps.Store.Get(ctx, key)
	outcome := "miss"
	if ok {
		outcome = "hit"
	}
	metrics.ObserveStage("cache_check", outcome, time.Since(start))
	return res, ok
}

func (o *Orchestrator) fetchAndClassify(ctx context.Context, ids []string) ([]chem.Record, chem.Classification, error) {
	log := logging.L(ctx)

	fetchCtx, span := tracer.Start(ctx, "pipeline.fetch")
	start := time.Now()
	records, err := o.deps.Fetcher.Fetch(fetchCtx, ids)
	if err != nil {
		metrics.ObserveStage("fetch", "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		span.End()
		log.Warn("pipeline_stage", zap.String("stage", "fetch"), zap.Error(err))
		var ce *chem.Error
		if !errors.As(err, &ce) {
			err = chem.E("pipeline.fetch", chem.KindInternal, "reactivity lookup failed", err)
		}
		return nil, chem.Classification{}, err
	}
	if len(records) == 0 {
		metrics.ObserveStage("fetch", "empty", time.Since(start))
		span.End()
		return nil, chem.Classification{}, chem.E("pipeline.fetch", chem.KindNotFound,
			"No reactivity data found for given substances", nil)
	}
	metrics.ObserveStage("fetch", "ok", time.Since(start))
	span.SetAttributes(attribute.Int("records", len(records)))
	span.End()

	_, span = tracer.Start(ctx, "pipeline.classify")
	defer span.End()
	start = time.Now()
	classification, err := o.deps.Classifier.Classify(records)
	if err != nil {
		metrics.ObserveStage("classify", "error", time.Since(start))
		span.RecordError(err)
		return nil, chem.Classification{}, chem.E("pipeline.classify", chem.KindInternal, "classification failed", err)
	}
	metrics.ObserveStage("classify", "ok", time.Since(start))
	return records, classification, nil
}

// aiStages runs summarize then translate. Failures never abort the run;
// they are reported through the returned status and placeholder text.
func (o *Orchestrator) aiStages(ctx context.Context, useAI bool, c chem.Classification) (english, localized *string, status chem.AiStatus) {
	if !useAI {
		return nil, nil, chem.AiSkipped
	}
	log := logging.L(ctx)

	url := o.deps.Endpoint.Get()
	if url == "" {
		log.Info("pipeline_stage", zap.String("stage", "summarize"), zap.String("outcome", "not_configured"))
		return nil, nil, chem.AiUnavailable
	}

	sctx, span := tracer.Start(ctx, "pipeline.summarize")
	start := time.Now()
	if health := o.deps.Summarizer.Health(sctx, url); health != summary.Healthy {
		metrics.ObserveStage("summarize", "unavailable", time.Since(start))
		span.SetAttributes(attribute.String("ai.health", string(health)))
		span.End()
		log.Info("pipeline_stage", zap.String("stage", "summarize"), zap.String("health", string(health)))
		return nil, nil, chem.AiUnavailable
	}

	text, err := o.deps.Summarizer.Summarize(sctx, url, c)
	if err != nil {
		metrics.ObserveStage("summarize", "error", time.Since(start))
		span.RecordError(err)
		span.End()
		log.Warn("pipeline_stage", zap.String("stage", "summarize"), zap.Error(err))
		placeholder := "AI summary unavailable: " + reason(err)
		return &placeholder, nil, chem.AiError
	}
	metrics.ObserveStage("summarize", "ok", time.Since(start))
	span.End()

	tctx, span := tracer.Start(ctx, "pipeline.translate")
	defer span.End()
	start = time.Now()
	translated, err := o.deps.Translator.Translate(tctx, text, c)
	if err != nil {
		metrics.ObserveStage("translate", "error", time.Since(start))
		span.RecordError(err)
		log.Warn("pipeline_stage", zap.String("stage", "translate"), zap.Error(err))
		placeholder := "Translation unavailable: " + reason(err)
		return &text, &placeholder, chem.AiPartial
	}
	metrics.ObserveStage("translate", "ok", time.Since(start))
	return &text, &translated, chem.AiSuccess
}

// reason renders err for a user-facing placeholder.
func reason(err error) string {
	msg := err.Error()
	var ce *chem.Error
	if errors.As(err, &ce) && ce.Detail != "" {
		msg = ce.Detail
		if ce.Status != 0 {
			msg = fmt.Sprintf("HTTP %d: %s", ce.Status, ce.Detail)
		}
	}
	return chem.SafeMessage(fmt.Errorf("%s", msg))
}

// cleanIDs trims identifiers and drops blanks and case-insensitive
// duplicates, keeping first-seen order and spelling.
func cleanIDs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		k := strings.ToLower(id)
		if id == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, id)
	}
	return out
}
