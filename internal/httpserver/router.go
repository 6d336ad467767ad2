package httpserver

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mixsafe-gateway/internal/handlers"
	"mixsafe-gateway/internal/metrics"
	"mixsafe-gateway/internal/middleware"
)

// Options tunes the shared middleware stack.
type Options struct {
	RequestTimeout time.Duration // 0 disables the per-request deadline
	MaxBodyBytes   int64
	AllowedOrigins []string
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, h *handlers.Handler, opts Options) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer()) // panic recovery
	r.Use(middleware.CORS(opts.AllowedOrigins...))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if opts.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))
	}

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Head("/health", h.Health)
	r.Post("/set-ai-url", h.SetAIURL)

	// analysis
	r.Post("/analyze", h.Analyze)
	r.Post("/hybrid-analyze", h.HybridAnalyze)
	r.Post("/simple-analyze", h.SimpleAnalyze)
	r.Post("/analyze-from-records", h.AnalyzeFromRecords)
	r.Post("/analyze-from-json", h.AnalyzeFromRecords)

	r.Handle("/metrics", metrics.Handler())
}
