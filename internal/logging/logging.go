// Package logging configures the process-wide slog logger.
//
// All components log through log/slog with key/value attributes. Two levels
// exist beyond the slog defaults: LevelTrace for per-message protocol chatter
// and LevelFatal for the final line before a failed run exits.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	// LevelTrace sits below slog.LevelDebug.
	LevelTrace = slog.Level(-8)
	// LevelFatal sits above slog.LevelError.
	LevelFatal = slog.Level(12)
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel accepts the long and one-letter level names
// (trace, debug, info, warn, error, fatal).
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "t", "trace":
		return LevelTrace, nil
	case "d", "debug":
		return slog.LevelDebug, nil
	case "", "i", "info":
		return slog.LevelInfo, nil
	case "w", "warn", "warning":
		return slog.LevelWarn, nil
	case "e", "error":
		return slog.LevelError, nil
	case "f", "fatal":
		return LevelFatal, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unable to parse level %q", raw)
	}
}

// ParseFormat accepts "text" or "json" (empty means text).
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q: must be text or json", raw)
	}
}

// New builds a logger writing to w at the given level.
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameLevels,
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Configure builds a logger and installs it as the slog default.
func Configure(w io.Writer, level slog.Level, format Format) *slog.Logger {
	logger := New(w, level, format)
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Component tags a logger with the component attribute, falling back to the
// default logger when l is nil.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}

// Trace logs at LevelTrace.
func Trace(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// Fatal logs at LevelFatal. It does not exit.
func Fatal(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelFatal, msg, args...)
}

func renameLevels(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case level < slog.LevelDebug:
		a.Value = slog.StringValue("TRACE")
	case level > slog.LevelError:
		a.Value = slog.StringValue("FATAL")
	}
	return a
}
