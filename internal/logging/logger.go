// Package logging builds the zap logger shared by lockeye's components.
// Log lines go to stderr so that stdout carries nothing but reports.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lockeye/internal/config"
)

// Category names a component's child logger.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup, config resolution
	CategorySearch  Category = "search"  // line search over the documentation tree
	CategoryChecker Category = "checker" // record building and comparison
	CategoryWatch   Category = "watch"   // filesystem watcher
)

// New builds a logger from cfg writing to w, normally the process stderr.
func New(cfg config.LoggingConfig, w io.Writer) (*zap.Logger, error) {
	return NewWithSink(cfg, zapcore.Lock(zapcore.AddSync(w)))
}

// NewWithSink builds a logger from cfg writing to sink.
func NewWithSink(cfg config.LoggingConfig, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encCfg.TimeKey = ""
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.ErrorOutput(sink)}
	if cfg.IsDebug() {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...), nil
}

// For returns the child logger for a component. A nil parent yields a no-op logger.
func For(parent *zap.Logger, category Category) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(string(category))
}
