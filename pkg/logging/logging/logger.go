package logging

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

// prevents differences when adding new constants
const loggerKey ctxKey = iota

var (
	defaultMu     sync.Mutex
	defaultLogger *zap.Logger
)

// Options selects the encoder and level of a logger.
// Empty fields fall back to the ENV and LOG_LEVEL environment variables.
type Options struct {
	Env   string // "dev"/"development" -> colored console, anything else -> JSON
	Level string // debug, info, warn, error
}

func (o Options) withEnvFallback() Options {
	if o.Env == "" {
		o.Env = os.Getenv("ENV")
	}
	if o.Level == "" {
		o.Level = os.Getenv("LOG_LEVEL")
	}
	return o
}

// NewLogger builds a zap logger for opts.
func NewLogger(opts Options) (*zap.Logger, error) {
	opts = opts.withEnvFallback()

	var config zap.Config
	if opts.Env == "dev" || opts.Env == "development" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		//to see who calls it
		config.DisableCaller = false
	}

	if opts.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(opts.Level)); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return config.Build()
}

// Configure replaces the process-wide default logger.
func Configure(opts Options) (*zap.Logger, error) {
	logger, err := NewLogger(opts)
	if err != nil {
		return nil, err
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
	return logger, nil
}

// DefaultLogger returns the process-wide logger, building it from the
// environment on first use.
func DefaultLogger() *zap.Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		logger, err := NewLogger(Options{})
		if err != nil {
			_, _ = os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
			logger = zap.NewNop()
		}
		defaultLogger = logger
	}
	return defaultLogger
}

// attach a logger to context
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request-scoped logger, or the default one.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return DefaultLogger()
}

func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx)
}

// WithFields adds structured fields to the logger in context.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	logger := FromContext(ctx).With(fields...)
	return WithLogger(ctx, logger)
}
