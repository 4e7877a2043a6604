package config

import (
	"errors"
	"fmt"
)

// Configuration failures, matched with errors.Is.
var (
	ErrInvalid        = errors.New("invalid configuration")
	ErrFileNotFound   = errors.New("configuration file not found")
	ErrFileUnreadable = errors.New("configuration file unreadable")
	ErrMalformed      = errors.New("configuration file malformed")
)

// Error reports a configuration that was read but did not decode or
// validate.
type Error struct {
	File    string // empty when no file was given
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("config %s: %s", e.File, e.Message)
	}
	return "config: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsConfigError reports whether err originates from loading configuration.
func IsConfigError(err error) bool {
	var cfgErr *Error
	if errors.As(err, &cfgErr) {
		return true
	}
	return errors.Is(err, ErrInvalid) ||
		errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrFileUnreadable) ||
		errors.Is(err, ErrMalformed)
}

func invalid(path string, err error) error {
	return &Error{
		File:    path,
		Message: err.Error(),
		Cause:   fmt.Errorf("%w: %w", ErrInvalid, err),
	}
}
