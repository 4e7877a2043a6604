package cli

import (
	"errors"

	"github.com/sufield/trustboot/internal/config"
	coreerrors "github.com/sufield/trustboot/internal/core/errors"
)

// Sentinel errors for exit code classification
var (
	// ErrUsage indicates invalid command usage, flags, or arguments
	ErrUsage = errors.New("usage error")

	// ErrConfig indicates invalid or unsafe configuration
	ErrConfig = errors.New("configuration error")

	// ErrRuntime indicates runtime execution failures
	ErrRuntime = errors.New("runtime error")

	// ErrInternal indicates internal system errors
	ErrInternal = errors.New("internal error")
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitConfig   = 3
	ExitNotReady = 4
	ExitMismatch = 5
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrConfig), config.IsConfigError(err):
		return ExitConfig
	case errors.Is(err, coreerrors.ErrArtifactNotReady):
		return ExitNotReady
	case errors.Is(err, coreerrors.ErrValidationMismatch):
		return ExitMismatch
	default:
		return ExitRuntime
	}
}
