package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a logger writing to w. format is "json" or
// "console".
func NewZerologLogger(w io.Writer, level Level, format string) *ZerologLogger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	appendFields(l.zl.Debug(), fields).Msg(msg)
}

// Info implements Logger.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	appendFields(l.zl.Info(), fields).Msg(msg)
}

// Warn implements Logger.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	appendFields(l.zl.Warn(), fields).Msg(msg)
}

// Error implements Logger.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	appendFields(l.zl.Error(), fields).Msg(msg)
}

// With implements Logger.
func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{zl: appendContext(l.zl.With(), fields).Logger()}
}

// Enabled implements Logger.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// Zerolog exposes the underlying logger for code that wants the zerolog API
// directly, e.g. to embed LogObjectMarshaler errors.
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.zl
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ToLogLevel parses "debug", "info", "warn" or "error".
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
}

// ZerologProvider implements LoggerProvider.
type ZerologProvider struct {
	mu     sync.RWMutex
	out    io.Writer
	format string
	level  Level
	root   *ZerologLogger
}

// NewZerologProvider creates a provider whose loggers write to out.
func NewZerologProvider(out io.Writer, level Level, format string) *ZerologProvider {
	return &ZerologProvider{
		out:    out,
		format: format,
		level:  level,
		root:   NewZerologLogger(out, level, format),
	}
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.root = NewZerologLogger(p.out, level, p.format)
}

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo, "json")
)

// SetProvider replaces the process-wide provider.
func SetProvider(p LoggerProvider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider.GetLogger()
}

// GetLoggerWithName returns the process-wide logger tagged with a component.
func GetLoggerWithName(name string) Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider.GetLoggerWithName(name)
}

// SetupLogger configures the process-wide zerolog provider and routes
// errors.Warn through it.
func SetupLogger(level, format string) error {
	lvl, err := ToLogLevel(level)
	if err != nil {
		return err
	}
	provider := NewZerologProvider(os.Stderr, lvl, format)
	SetProvider(provider)

	warnLogger := provider.GetLoggerWithName("warnings")
	errors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), ErrAttrKey, w)
	})
	return nil
}
