// Package ports defines the interfaces (ports) the bootstrap core depends on.
package ports

import (
	"context"
)

// LogAttribute represents a key-value pair for structured logging.
type LogAttribute struct {
	Key   string
	Value interface{}
}

// Attr builds a LogAttribute.
func Attr(key string, value interface{}) LogAttribute {
	return LogAttribute{Key: key, Value: value}
}

// Logger provides secure logging capabilities with automatic redaction.
type Logger interface {
	// Debug logs a debug level message.
	Debug(ctx context.Context, message string, attrs ...LogAttribute)
	// Info logs an info level message.
	Info(ctx context.Context, message string, attrs ...LogAttribute)
	// Warn logs a warning level message.
	Warn(ctx context.Context, message string, attrs ...LogAttribute)
	// Error logs an error level message.
	Error(ctx context.Context, message string, attrs ...LogAttribute)
	// WithAttrs returns a new logger with the given attributes added.
	WithAttrs(attrs ...LogAttribute) Logger
	// WithGroup returns a new logger with the given group name.
	WithGroup(name string) Logger
}

// NopLogger discards every message.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...LogAttribute) {}
func (NopLogger) Info(context.Context, string, ...LogAttribute)  {}
func (NopLogger) Warn(context.Context, string, ...LogAttribute)  {}
func (NopLogger) Error(context.Context, string, ...LogAttribute) {}
func (l NopLogger) WithAttrs(...LogAttribute) Logger             { return l }
func (l NopLogger) WithGroup(string) Logger                      { return l }
