package handlers

import (
	"context"
	"net/http"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/endpoint"
	"mixsafe-gateway/internal/pipeline"
	"mixsafe-gateway/internal/summary"
	"mixsafe-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// Analyzer is satisfied by *pipeline.Orchestrator.
type Analyzer interface {
	Hybrid(ctx context.Context, req pipeline.Request) (chem.Result, error)
	Analyze(ctx context.Context, req pipeline.Request) (pipeline.AnalyzeResult, error)
	Simple(ctx context.Context, substances []string) (chem.Classification, error)
	AnalyzeRecords(ctx context.Context, records []chem.Record) (string, error)
}

// Prober checks the AI service health.
type Prober interface {
	HealthWithin(ctx context.Context, url string, timeout time.Duration) summary.Health
}

// Handler holds dependencies for every public endpoint.
type Handler struct {
	Pipeline      Analyzer
	Prober        Prober
	Endpoint      *endpoint.Cell
	Version       string
	HealthTimeout time.Duration
}

func New(p Analyzer, prober Prober, cell *endpoint.Cell, version string) *Handler {
	return &Handler{
		Pipeline:      p,
		Prober:        prober,
		Endpoint:      cell,
		Version:       version,
		HealthTimeout: 3 * time.Second,
	}
}

func (h *Handler) decodeAnalysis(w http.ResponseWriter, r *http.Request) (AnalysisRequest, bool) {
	var req AnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return req, false
	}
	if len(req.Identifiers()) == 0 {
		writeError(w, r, chem.E("decode", chem.KindInvalidInput, "at least one substance identifier is required", nil))
		return req, false
	}
	return req, true
}

// HybridAnalyze handles POST /hybrid-analyze: cached classification,
// bilingual summary and safety links.
func (h *Handler) HybridAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysis(w, r)
	if !ok {
		return
	}
	start := time.Now()
	ids := req.Identifiers()

	res, err := h.Pipeline.Hybrid(r.Context(), pipeline.Request{Substances: ids, UseAI: req.AI()})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logging.L(r.Context()).Info("hybrid_analyze",
		zap.Int("products", len(req.Products)),
		zap.Int("identifiers", len(ids)),
		zap.String("overall_status", string(res.Classification.Summary.OverallStatus)),
		zap.String("ai_status", string(res.AiStatus)),
		zap.Duration("total_latency_ms", time.Since(start)),
	)
	writeJSON(w, res)
}

// Analyze handles POST /analyze: uncached records, classification and an
// optional AI analysis of the raw records.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysis(w, r)
	if !ok {
		return
	}
	res, err := h.Pipeline.Analyze(r.Context(), pipeline.Request{Substances: req.Identifiers(), UseAI: req.AI()})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, res)
}

type simpleResponse struct {
	Success bool `json:"success"`
	chem.Classification
}

// SimpleAnalyze handles POST /simple-analyze: classification only.
func (h *Handler) SimpleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysis(w, r)
	if !ok {
		return
	}
	c, err := h.Pipeline.Simple(r.Context(), req.Identifiers())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, simpleResponse{Success: true, Classification: c})
}

// AnalyzeFromRecords handles POST /analyze-from-records with a JSON array
// of reactivity records.
func (h *Handler) AnalyzeFromRecords(w http.ResponseWriter, r *http.Request) {
	if !h.Endpoint.Configured() {
		writeError(w, r, chem.E("analyze_from_records", chem.KindUpstreamUnavailable, "AI API URL not configured", nil))
		return
	}

	var req recordsRequest
	if err := readJSON(r, &req.Records); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	text, err := h.Pipeline.AnalyzeRecords(r.Context(), req.Records)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "ai_analysis": text})
}
