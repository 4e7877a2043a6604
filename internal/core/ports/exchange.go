package ports

import (
	"context"
	"time"

	"github.com/sufield/trustboot/internal/core/domain"
)

// ExchangeChannel is the shared, eventually consistent storage through which
// roles hand artifacts to each other. Nothing is pushed; consumers poll.
type ExchangeChannel interface {
	// Publish writes payload under key so that readers observe either the
	// whole payload or nothing. It reports published=false, and no error,
	// when a non-empty artifact already exists under key.
	Publish(ctx context.Context, key domain.ArtifactKey, payload []byte) (published bool, err error)

	// Read probes key once. A missing or empty artifact is ok=false, not an
	// error.
	Read(ctx context.Context, key domain.ArtifactKey) (payload []byte, ok bool, err error)

	// Poll probes key at a fixed interval until it is present and non-empty
	// or timeout elapses. A timeout is reported as an error wrapping
	// core/errors.ErrArtifactNotReady.
	Poll(ctx context.Context, key domain.ArtifactKey, timeout, interval time.Duration) ([]byte, error)

	// List returns the artifact names currently present in a segment.
	List(ctx context.Context, segment domain.Segment) ([]string, error)
}
