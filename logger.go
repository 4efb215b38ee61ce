package respool

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with pool-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithKey adds a key field to the logger.
func (l *Logger) WithKey(key string) *Logger {
	return &Logger{
		Logger: l.Logger.With("key", key),
	}
}

// LogLoad logs a finished factory invocation.
func (l *Logger) LogLoad(key string, sizeBytes int64, waiters int, d time.Duration, err error) {
	if err != nil {
		l.Error("resource load failed",
			"key", key,
			"waiters", waiters,
			"duration", d,
			"error", err,
		)
		return
	}
	l.Debug("resource loaded",
		"key", key,
		"size_bytes", sizeBytes,
		"waiters", waiters,
		"duration", d,
	)
}

// LogEviction logs a single evicted entry.
func (l *Logger) LogEviction(key string, reason EvictionReason, sizeBytes int64, score float64) {
	l.Debug("resource evicted",
		"key", key,
		"reason", reason.String(),
		"size_bytes", sizeBytes,
		"score", score,
	)
}

// LogAnomaly logs a recovered bookkeeping inconsistency.
func (l *Logger) LogAnomaly(kind AnomalyKind, key string, err error) {
	l.Warn("resource pool anomaly",
		"anomaly", kind.String(),
		"key", key,
		"error", err,
	)
}

// LogDeadlock logs an eviction pass that ran out of eligible entries.
func (l *Logger) LogDeadlock(currentBytes, targetBytes int64, pinned int) {
	l.Warn("eviction deadlock: continuing over budget",
		"current_bytes", currentBytes,
		"target_bytes", targetBytes,
		"pinned_entries", pinned,
		"error", ErrBudgetExceeded,
	)
}
