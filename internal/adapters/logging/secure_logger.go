package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sufield/trustboot/internal/core/ports"
)

// SecureLogger implements ports.Logger on top of slog with redaction.
type SecureLogger struct {
	logger *slog.Logger
	attrs  []ports.LogAttribute
	group  string
}

var _ ports.Logger = (*SecureLogger)(nil)

// NewSecureLogger creates a logger writing through handler after redaction.
func NewSecureLogger(handler slog.Handler) *SecureLogger {
	return &SecureLogger{
		logger: slog.New(NewRedactorHandler(handler)),
	}
}

// NewLogger builds a SecureLogger writing to w. format is "text" or "json";
// level is any slog level name.
func NewLogger(level, format string, w io.Writer) (*SecureLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	return NewSecureLogger(handler), nil
}

// ParseLevel converts debug, info, warn or error into an slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return lvl, nil
}

// Slog returns the redacting *slog.Logger behind l, for code outside the core.
func (l *SecureLogger) Slog() *slog.Logger {
	return l.logger
}

// Debug logs a debug level message.
func (l *SecureLogger) Debug(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelDebug, message, attrs...)
}

// Info logs an info level message.
func (l *SecureLogger) Info(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelInfo, message, attrs...)
}

// Warn logs a warning level message.
func (l *SecureLogger) Warn(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelWarn, message, attrs...)
}

// Error logs an error level message.
func (l *SecureLogger) Error(ctx context.Context, message string, attrs ...ports.LogAttribute) {
	l.log(ctx, slog.LevelError, message, attrs...)
}

// WithAttrs returns a new logger with the given attributes added.
func (l *SecureLogger) WithAttrs(attrs ...ports.LogAttribute) ports.Logger {
	merged := make([]ports.LogAttribute, 0, len(l.attrs)+len(attrs))
	merged = append(merged, l.attrs...)
	merged = append(merged, attrs...)
	return &SecureLogger{logger: l.logger, attrs: merged, group: l.group}
}

// WithGroup returns a new logger with the given group name.
func (l *SecureLogger) WithGroup(name string) ports.Logger {
	group := name
	if l.group != "" {
		group = l.group + "." + name
	}
	return &SecureLogger{logger: l.logger, attrs: l.attrs, group: group}
}

func (l *SecureLogger) log(ctx context.Context, level slog.Level, message string, attrs ...ports.LogAttribute) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	slogAttrs := make([]slog.Attr, 0, len(l.attrs)+len(attrs))
	for _, a := range l.attrs {
		slogAttrs = append(slogAttrs, slog.Any(a.Key, a.Value))
	}
	for _, a := range attrs {
		slogAttrs = append(slogAttrs, slog.Any(a.Key, a.Value))
	}

	logger := l.logger
	if l.group != "" {
		logger = logger.WithGroup(l.group)
	}
	logger.LogAttrs(ctx, level, message, slogAttrs...)
}
