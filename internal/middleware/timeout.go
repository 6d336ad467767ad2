package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"mixsafe-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// forwardedPanic carries a panic from the handler goroutine back to the
// request goroutine so Recoverer sees it.
type forwardedPanic struct {
	value any
	stack []byte
}

// timeoutWriter buffers the handler's headers in its own map and stops
// forwarding writes once the deadline response has been sent. The real
// header map belongs to the request goroutine.
type timeoutWriter struct {
	w        http.ResponseWriter
	h        http.Header
	mu       sync.Mutex
	wrote    bool
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

// writeHeaderLocked copies the buffered headers out. Callers hold mu.
func (tw *timeoutWriter) writeHeaderLocked(code int) {
	tw.wrote = true
	dst := tw.w.Header()
	for k, vv := range tw.h {
		dst[k] = append([]string(nil), vv...)
	}
	tw.w.WriteHeader(code)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wrote {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wrote {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.w.Write(b)
}

// Timeout cancels the request context after d and returns 504 if the
// handler has not started writing by then.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			r = r.WithContext(ctx)
			tw := &timeoutWriter{w: w, h: make(http.Header)}

			done := make(chan struct{})
			panicked := make(chan forwardedPanic, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- forwardedPanic{value: p, stack: debug.Stack()}
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				return
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				tw.mu.Lock()
				if tw.wrote {
					// already streaming a response; let the handler finish it
					tw.mu.Unlock()
					select {
					case <-done:
					case p := <-panicked:
						panic(p)
					}
					return
				}
				tw.timedOut = true
				defer tw.mu.Unlock()
				logging.L(ctx).Warn("request timeout", zap.Duration("timeout", d))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				_, _ = w.Write([]byte(`{"error":"gateway_timeout","detail":"request timed out"}`))
			}
		})
	}
}
