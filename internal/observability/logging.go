// Package observability provides logging construction and formatted CLI
// output for the crediscan pipeline.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the shared zap logger. Level is one of debug, info, warn,
// error; format is "json" for production output or anything else for
// human-readable console output.
func NewLogger(level, format string) *zap.Logger {
	lvl := zapcore.InfoLevel
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NopLogger returns a logger that discards everything. Useful as a default
// when callers pass nil.
func NopLogger() *zap.Logger {
	return zap.NewNop()
}
