package logger

import (
	"context"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type key string

const loggerKey key = "logger"

var defaultLogger *zap.SugaredLogger

func init() {
	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalln("logger: can't create default zap logger:", err)
	}
	defaultLogger = zl.Sugar()
}

// Run builds the root sugared logger for the given level name.
// Unknown levels fall back to "info".
func Run(level string) *zap.SugaredLogger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	zl, err := cfg.Build()
	if err != nil {
		log.Fatalln("logger: can't build zap logger:", err)
	}

	defaultLogger = zl.Sugar()
	return defaultLogger
}

// WithLogger puts a request-scoped logger into the context.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// InContext reports whether a request-scoped logger was stored.
func InContext(ctx context.Context) bool {
	l, ok := ctx.Value(loggerKey).(*zap.SugaredLogger)
	return ok && l != nil
}

// Log returns the logger stored in the context by the logging middleware
// or the process-wide default one.
func Log(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return defaultLogger
}
