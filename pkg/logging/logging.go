// Package logging wraps go.uber.org/zap behind a small interface so the
// rest of loom depends on a seam, not a concrete logging library,
// mirroring xraph-go-utils/log's wrapper but trimmed of its global-logger
// and context-key machinery: loom's core never reaches into ambient
// global state, per spec.md §9's redesign note on global registries.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging seam every loom package depends on.
// Key-value pairs follow zap's SugaredLogger convention: alternating
// key, value, key, value...
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
	Sync() error
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// New builds a Logger for the given environment ("production" yields
// JSON output at info level; anything else yields console output at
// debug level), matching the pattern in xraph-go-utils/log.NewLogger.
func New(environment string) Logger {
	var core *zap.Logger
	if environment == "production" {
		cfg := zap.NewProductionConfig()
		core, _ = cfg.Build(zap.AddCallerSkip(1))
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core, _ = cfg.Build(zap.AddCallerSkip(1))
	}
	return &zapLogger{l: core.Sugar()}
}

// NewWriter builds a Logger writing JSON to an arbitrary sink, useful for
// tests that want to assert on log output instead of discarding it.
func NewWriter(w *os.File, level zapcore.Level) Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), level)
	return &zapLogger{l: zap.New(core).Sugar()}
}

func (z *zapLogger) Debug(msg string, kv ...any) { z.l.Debugw(msg, kv...) }
func (z *zapLogger) Info(msg string, kv ...any)  { z.l.Infow(msg, kv...) }
func (z *zapLogger) Warn(msg string, kv ...any)  { z.l.Warnw(msg, kv...) }
func (z *zapLogger) Error(msg string, kv ...any) { z.l.Errorw(msg, kv...) }
func (z *zapLogger) With(kv ...any) Logger       { return &zapLogger{l: z.l.With(kv...)} }
func (z *zapLogger) Sync() error                 { return z.l.Sync() }

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)   {}
func (noopLogger) Info(string, ...any)    {}
func (noopLogger) Warn(string, ...any)    {}
func (noopLogger) Error(string, ...any)   {}
func (n noopLogger) With(...any) Logger   { return n }
func (noopLogger) Sync() error            { return nil }

// NoOp returns a Logger that discards everything, used as the default
// when a caller does not supply one (tests, constructors given a nil
// Logger).
func NoOp() Logger { return noopLogger{} }
