// Package logging provides the slog-backed logger with redaction of key
// material and passwords.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RedactedValue is the placeholder for redacted sensitive data.
const RedactedValue = "[REDACTED]"

// sensitiveFields are matched against the lowercased attribute key, either
// exactly or as a substring.
var sensitiveFields = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"private_key",
	"privatekey",
	"private-key",
	"credentials",
	"authorization",
	"bundle",
}

// sensitiveSuffixes catch compound names such as ca_key or signing_key
// without hiding key_bits or nickname-like fields.
var sensitiveSuffixes = []string{"_key", "-key", ".key"}

// RedactorHandler wraps an slog.Handler to redact sensitive attributes.
type RedactorHandler struct {
	handler slog.Handler
}

// NewRedactorHandler creates a new handler that redacts sensitive fields.
func NewRedactorHandler(handler slog.Handler) *RedactorHandler {
	return &RedactorHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *RedactorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler with sensitive data redaction.
//
//nolint:gocritic // Required by slog.Handler interface
func (h *RedactorHandler) Handle(ctx context.Context, record slog.Record) error {
	newRecord := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		newRecord.AddAttrs(redactAttr(attr))
		return true
	})

	if err := h.handler.Handle(ctx, newRecord); err != nil {
		return fmt.Errorf("redactor handle failed: %w", err)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RedactorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		redacted[i] = redactAttr(attr)
	}
	return &RedactorHandler{handler: h.handler.WithAttrs(redacted)}
}

// WithGroup implements slog.Handler.
func (h *RedactorHandler) WithGroup(name string) slog.Handler {
	return &RedactorHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	if isSensitiveField(attr.Key) {
		return slog.String(attr.Key, RedactedValue)
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, ga := range group {
			redacted[i] = redactAttr(ga)
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		return slog.String(attr.Key, redactString(attr.Value.String()))
	case slog.KindAny:
		// Byte payloads read from the exchange channel may be bundles or
		// passwords; never print them.
		if _, ok := attr.Value.Any().([]byte); ok {
			return slog.String(attr.Key, RedactedValue)
		}
	}
	return attr
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveFields {
		if strings.Contains(lower, s) {
			return true
		}
	}
	if lower == "key" {
		return true
	}
	for _, s := range sensitiveSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// redactString hides PEM private keys wherever they appear. Certificates and
// requests are public and stay visible.
func redactString(value string) string {
	if strings.Contains(value, "PRIVATE KEY-----") {
		return RedactedValue
	}
	return value
}
