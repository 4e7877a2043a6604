// Package errors defines the error kinds raised while bootstrapping trust.
package errors

import (
	stderrors "errors"
	"fmt"
)

// DomainError represents errors in the domain logic
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so callers
// can match on the sentinel bases below with errors.Is.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !stderrors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// Bootstrap error kinds. All of them are fatal for the role that raises them.
var (
	ErrStoreUnavailable = &DomainError{
		Code:    "STORE_UNAVAILABLE",
		Message: "certificate store unavailable",
	}

	ErrArtifactNotReady = &DomainError{
		Code:    "ARTIFACT_NOT_READY",
		Message: "exchange artifact not ready",
	}

	ErrImportFailed = &DomainError{
		Code:    "IMPORT_FAILED",
		Message: "import failed",
	}

	ErrGenerationFailed = &DomainError{
		Code:    "GENERATION_FAILED",
		Message: "key or certificate generation failed",
	}

	ErrValidationMismatch = &DomainError{
		Code:    "VALIDATION_MISMATCH",
		Message: "store state does not match trust policy",
	}

	ErrExportFailed = &DomainError{
		Code:    "EXPORT_FAILED",
		Message: "export failed",
	}

	ErrIssueFailed = &DomainError{
		Code:    "ISSUE_FAILED",
		Message: "certificate request could not be issued",
	}

	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "nickname not found",
	}
)

// NewDomainError creates a new domain error with context
func NewDomainError(base *DomainError, err error) error {
	return &DomainError{
		Code:    base.Code,
		Message: base.Message,
		Err:     err,
	}
}

// Newf creates a domain error of the given kind with a formatted detail.
func Newf(base *DomainError, format string, args ...any) error {
	return NewDomainError(base, fmt.Errorf(format, args...))
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}
