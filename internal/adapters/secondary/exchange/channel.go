// Package exchange implements the exchange channel on a shared directory.
//
// Each segment is a subdirectory with its own permissions. Artifacts are
// written to a uniquely named temporary file in the same directory, synced,
// and hard-linked into place, so readers on the same filesystem see either
// the complete artifact or nothing, and of two concurrent publishers exactly
// one wins.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	coreerrors "github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/domain"
	"github.com/sufield/trustboot/internal/core/ports"
	"github.com/sufield/trustboot/internal/poll"
)

const tmpPrefix = ".tmp-"

// chmod is replaced in tests to simulate a segment owned by another user.
var chmod = os.Chmod

// Channel is a directory-backed ports.ExchangeChannel.
type Channel struct {
	root    string
	metrics ports.MetricsReporter
	logger  ports.Logger
}

var _ ports.ExchangeChannel = (*Channel)(nil)

// Option configures a Channel.
type Option func(*Channel)

// WithMetrics reports publishes and poll attempts to m.
func WithMetrics(m ports.MetricsReporter) Option {
	return func(c *Channel) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger used for poll progress.
func WithLogger(l ports.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a channel rooted at dir. Segment directories are created on
// first publish.
func New(dir string, opts ...Option) *Channel {
	c := &Channel{
		root:    dir,
		metrics: ports.NopMetrics{},
		logger:  ports.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the channel directory.
func (c *Channel) Root() string {
	return c.root
}

// Publish implements ports.ExchangeChannel.
func (c *Channel) Publish(ctx context.Context, key domain.ArtifactKey, payload []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := key.Validate(); err != nil {
		return false, coreerrors.NewDomainError(coreerrors.ErrExportFailed, err)
	}
	if len(payload) == 0 {
		return false, coreerrors.Newf(coreerrors.ErrExportFailed, "refusing to publish empty %s", key)
	}

	if _, ok, err := c.read(key); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}

	dir := c.segmentDir(key.Segment)
	if err := ensureSegment(dir, key.Segment.DirMode()); err != nil {
		return false, coreerrors.Newf(coreerrors.ErrExportFailed, "prepare segment %s: %w", key.Segment, err)
	}

	published, err := writeOnce(dir, key.Name, payload, key.Segment.FileMode())
	if err != nil {
		return false, coreerrors.Newf(coreerrors.ErrExportFailed, "publish %s: %w", key, err)
	}
	if !published {
		return false, nil
	}
	c.metrics.RecordPublished(key.String())
	return true, nil
}

// Read implements ports.ExchangeChannel.
func (c *Channel) Read(ctx context.Context, key domain.ArtifactKey) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := key.Validate(); err != nil {
		return nil, false, coreerrors.NewDomainError(coreerrors.ErrImportFailed, err)
	}
	return c.read(key)
}

// Poll implements ports.ExchangeChannel.
func (c *Channel) Poll(ctx context.Context, key domain.ArtifactKey, timeout, interval time.Duration) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, coreerrors.NewDomainError(coreerrors.ErrImportFailed, err)
	}

	policy := poll.For(timeout, interval)
	policy.OnAttempt = func(attempt int, ready bool) {
		c.metrics.RecordPollAttempt(key.String(), ready)
		if !ready {
			c.logger.Debug(ctx, "artifact not ready",
				ports.Attr("artifact", key.String()),
				ports.Attr("attempt", attempt),
				ports.Attr("max_attempts", policy.Attempts))
		}
	}

	res, err := poll.Until(ctx, policy, func(context.Context) ([]byte, bool, error) {
		return c.read(key)
	})
	if err != nil {
		return nil, err
	}
	if res.TimedOut() {
		return nil, coreerrors.Newf(coreerrors.ErrArtifactNotReady,
			"%s not present after %d attempts at %s intervals", key, res.Attempts, interval)
	}
	return res.Value, nil
}

// List implements ports.ExchangeChannel. Temporary files from in-flight
// publishes are skipped.
func (c *Channel) List(ctx context.Context, segment domain.Segment) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(c.segmentDir(segment))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, coreerrors.Newf(coreerrors.ErrImportFailed, "list segment %s: %w", segment, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (c *Channel) segmentDir(s domain.Segment) string {
	return filepath.Join(c.root, string(s))
}

// read treats missing and empty files alike: both mean "not yet".
func (c *Channel) read(key domain.ArtifactKey) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(c.segmentDir(key.Segment), key.Name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, coreerrors.Newf(coreerrors.ErrImportFailed, "read %s: %w", key, err)
	case len(data) == 0:
		return nil, false, nil
	}
	return data, true, nil
}

// ensureSegment creates dir with mode. MkdirAll is subject to umask, so a
// differing mode is corrected; a matching one is left alone because only the
// owner may chmod and shared segments have several writers.
func ensureSegment(dir string, mode os.FileMode) error {
	if err := os.MkdirAll(dir, mode); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if info.Mode().Perm() == mode {
		return nil
	}
	return chmod(dir, mode)
}

// writeOnce stores data under name unless a non-empty file is already there.
// It reports whether this call wrote the artifact.
func writeOnce(dir, name string, data []byte, perm os.FileMode) (bool, error) {
	tmpName := filepath.Join(dir, tmpPrefix+uuid.NewString())
	f, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmpName) //nolint:errcheck // only the temporary name is removed

	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return false, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", tmpName, err)
	}

	final := filepath.Join(dir, name)
	err = os.Link(tmpName, final)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrExist):
		existing, readErr := os.ReadFile(final)
		if readErr != nil {
			return false, readErr
		}
		if len(existing) > 0 {
			return false, nil
		}
		// An empty artifact counts as absent and may be replaced.
		return true, os.Rename(tmpName, final)
	default:
		// Filesystems without hard links.
		return true, os.Rename(tmpName, final)
	}
}
