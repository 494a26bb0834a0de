// Package logging sets up structured JSON logging rotated to disk for
// non-user-facing diagnostics; the run command records its startup
// preflight warnings (LM unreachable, low disk space) here. CLI progress
// lines go to stdout via internal/uisink; this logger is the operational
// record.
package logging

import (
	"log/slog"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName  = "meetloop.log"
	maxSizeMB    = 32
	maxBackups   = 3
	maxAgeDays   = 14
)

// Option configures the logger.
type Option func(*lumberjack.Logger, *slog.HandlerOptions)

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(_ *lumberjack.Logger, opts *slog.HandlerOptions) { opts.Level = level }
}

// New creates a *slog.Logger writing JSON-formatted records to a rotated
// file under dir.
func New(dir string, opts ...Option) *slog.Logger {
	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	for _, opt := range opts {
		opt(w, handlerOpts)
	}

	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}
