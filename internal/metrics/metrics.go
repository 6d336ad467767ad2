package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Histogram: HTTP latency in seconds.
	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixsafe_http_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120, 300},
		},
		[]string{"path", "method", "status_code"},
	)

	// Counter: result cache lookups by backend and outcome (hit, miss, error).
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixsafe_cache_lookups_total",
			Help: "Result cache lookups by backend and outcome.",
		},
		[]string{"backend", "result"},
	)

	// Counter: result cache writes by backend and outcome (ok, error).
	CacheWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixsafe_cache_writes_total",
			Help: "Result cache writes by backend and outcome.",
		},
		[]string{"backend", "result"},
	)

	// Histogram: duration of each pipeline stage.
	PipelineStageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixsafe_pipeline_stage_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 300},
		},
		[]string{"stage", "outcome"},
	)

	// Counter: completed hybrid runs by AI status.
	AIStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixsafe_ai_status_total",
			Help: "Pipeline runs by resulting AI status.",
		},
		[]string{"status"},
	)

	// Counter: translation attempts by outcome (ok, malformed, failed).
	TranslationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixsafe_translation_attempts_total",
			Help: "Translation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// Counter: precache combinations by outcome.
	PrecacheJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixsafe_precache_jobs_total",
			Help: "Precache combinations processed by outcome.",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Register is called once in main() to register metrics.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPLatencySeconds,
			CacheLookupsTotal,
			CacheWritesTotal,
			PipelineStageSeconds,
			AIStatusTotal,
			TranslationAttemptsTotal,
			PrecacheJobsTotal,
		)
	})
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStage records one stage duration.
func ObserveStage(stage, outcome string, d time.Duration) {
	PipelineStageSeconds.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

// Middleware measures latency for each HTTP request. The path label uses
// the chi route pattern when available to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// capture status code
		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		HTTPLatencySeconds.
			WithLabelValues(path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
