package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != DefaultLogger() {
		t.Fatalf("expected default logger for bare context")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	l := zaptest.NewLogger(t)
	ctx := WithLogger(context.Background(), l)
	if L(ctx) != l {
		t.Fatalf("expected logger stored in context")
	}

	ctx = WithFields(ctx, zap.String("request_id", "abc"))
	if L(ctx) == l {
		t.Fatalf("WithFields should derive a new logger")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	l, err := NewLogger(Options{Env: "production", Level: "warn"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error should be enabled at warn level")
	}
}
