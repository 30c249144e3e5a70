// Package log provides the structured logging interface used across the
// module, a zerolog-backed implementation, and a capturing logger for tests.
//
// Fields are passed as alternating key/value pairs, as with log/slog:
//
//	logger := log.GetLoggerWithName("training").With(log.RunIDKey, runID)
//	logger.Info("plugin finished",
//	    log.PluginNameKey, "ridge",
//	    log.DurationMsKey, 12,
//	)
package log

import (
	"context"
)

// Logger is a slog-compatible structured logger.
type Logger interface {
	// Debug logs a diagnostic message.
	Debug(msg string, fields ...any)

	// Info logs an operational message.
	Info(msg string, fields ...any)

	// Warn logs a recoverable problem, such as a skipped plugin unit.
	Warn(msg string, fields ...any)

	// Error logs a failure. Error values passed as field values have their
	// cockroachdb/errors stack trace attached under StacktraceKey.
	Error(msg string, fields ...any)

	// With returns a logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level are emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Components take a provider so tests can
// swap in TestLoggerProvider.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
