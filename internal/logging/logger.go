package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging for the worker and the CLI
type Logger struct {
	prefix string
	base   *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewLogger creates a new logger with a prefix at info level
func NewLogger(prefix string) *Logger {
	return NewLoggerWithLevel(prefix, "info")
}

// NewLoggerWithLevel creates a new logger writing JSON to stdout at the given
// level. Unknown levels fall back to info.
func NewLoggerWithLevel(prefix, level string) *Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return FromZap(prefix, base)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() *Logger {
	return FromZap("", zap.NewNop())
}

// FromZap wraps an existing zap logger
func FromZap(prefix string, base *zap.Logger) *Logger {
	if prefix != "" {
		base = base.Named(prefix)
	}
	return &Logger{prefix: prefix, base: base, sugar: base.Sugar()}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// With returns a child logger that adds the key-value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	sugar := l.sugar.With(keysAndValues...)
	return &Logger{prefix: l.prefix, base: sugar.Desugar(), sugar: sugar}
}

// Zap exposes the underlying logger for libraries that take a *zap.Logger
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
