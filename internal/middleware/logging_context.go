package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mixsafe-gateway/pkg/logging/logging"
)

// LoggingContext attaches a request-scoped logger to the context, echoes
// the request id back in X-Request-Id, and writes one access line per
// request once the handler returns.
func LoggingContext(baseLogger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				// RealIP has already rewritten RemoteAddr when behind a proxy
				zap.String("remote_ip", r.RemoteAddr),
			}
			// set by chimw.RequestID
			if reqID := chimw.GetReqID(ctx); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
				w.Header().Set("X-Request-Id", reqID)
			}
			if ua := r.UserAgent(); ua != "" {
				fields = append(fields, zap.String("user_agent", ua))
			}
			reqLogger := baseLogger.With(fields...)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(ctx, reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			case r.URL.Path == "/health" || r.URL.Path == "/metrics":
				// probes and scrapes would drown everything else
				level = zapcore.DebugLevel
			}
			reqLogger.Check(level, "request_completed").Write(
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
