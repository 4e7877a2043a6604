// Package exchangechannel provides the contract test suite for
// ports.ExchangeChannel implementations. Every channel the bootstrap can
// run over must pass it.
package exchangechannel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trustboot/internal/core/domain"
	coreerrors "github.com/sufield/trustboot/internal/core/errors"
	"github.com/sufield/trustboot/internal/core/ports"
)

// Factory creates an empty channel for one subtest.
type Factory func(t *testing.T) ports.ExchangeChannel

// Run executes the complete contract suite against newImpl.
func Run(t *testing.T, newImpl Factory) {
	t.Helper()
	t.Run("publish then read", func(t *testing.T) {
		testPublishRead(t, newImpl(t))
	})
	t.Run("publish is write-once", func(t *testing.T) {
		testWriteOnce(t, newImpl(t))
	})
	t.Run("empty payload is rejected", func(t *testing.T) {
		testEmptyPayload(t, newImpl(t))
	})
	t.Run("missing artifact is not an error", func(t *testing.T) {
		testReadMissing(t, newImpl(t))
	})
	t.Run("poll times out as not ready", func(t *testing.T) {
		testPollTimeout(t, newImpl(t))
	})
	t.Run("poll sees a late artifact", func(t *testing.T) {
		testPollLate(t, newImpl(t))
	})
	t.Run("poll stops on cancellation", func(t *testing.T) {
		testPollCanceled(t, newImpl(t))
	})
	t.Run("list is per segment and sorted", func(t *testing.T) {
		testList(t, newImpl(t))
	})
	t.Run("exactly one concurrent publisher wins", func(t *testing.T) {
		testConcurrentPublish(t, newImpl(t))
	})
}

func testPublishRead(t *testing.T, ch ports.ExchangeChannel) {
	ctx := context.Background()
	published, err := ch.Publish(ctx, domain.ArtifactCACert, []byte("ca"))
	require.NoError(t, err)
	assert.True(t, published)

	got, ok, err := ch.Read(ctx, domain.ArtifactCACert)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("ca"), got)
}

func testWriteOnce(t *testing.T, ch ports.ExchangeChannel) {
	ctx := context.Background()
	_, err := ch.Publish(ctx, domain.ArtifactCABundlePassword, []byte("first"))
	require.NoError(t, err)

	published, err := ch.Publish(ctx, domain.ArtifactCABundlePassword, []byte("second"))
	require.NoError(t, err)
	assert.False(t, published)

	got, _, err := ch.Read(ctx, domain.ArtifactCABundlePassword)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func testEmptyPayload(t *testing.T, ch ports.ExchangeChannel) {
	_, err := ch.Publish(context.Background(), domain.ArtifactCACert, nil)
	assert.Error(t, err)

	_, ok, err := ch.Read(context.Background(), domain.ArtifactCACert)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testReadMissing(t *testing.T, ch ports.ExchangeChannel) {
	got, ok, err := ch.Read(context.Background(), domain.IssuedArtifact("absent"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func testPollTimeout(t *testing.T, ch ports.ExchangeChannel) {
	start := time.Now()
	_, err := ch.Poll(context.Background(), domain.ArtifactCACert, 30*time.Millisecond, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrArtifactNotReady)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "two waits between three probes")
}

func testPollLate(t *testing.T, ch ports.ExchangeChannel) {
	ctx := context.Background()
	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = ch.Publish(ctx, domain.ArtifactCABundle, []byte("bundle"))
	}()

	got, err := ch.Poll(ctx, domain.ArtifactCABundle, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte("bundle"), got)
}

func testPollCanceled(t *testing.T, ch ports.ExchangeChannel) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ch.Poll(ctx, domain.ArtifactCACert, time.Minute, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.False(t, errors.Is(err, coreerrors.ErrArtifactNotReady))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func testList(t *testing.T, ch ports.ExchangeChannel) {
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		_, err := ch.Publish(ctx, domain.RequestArtifact(id), []byte("csr-"+id))
		require.NoError(t, err)
	}
	_, err := ch.Publish(ctx, domain.IssuedArtifact("a"), []byte("crt"))
	require.NoError(t, err)

	names, err := ch.List(ctx, domain.SegmentRequests)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csr", "b.csr", "c.csr"}, names)

	names, err = ch.List(ctx, domain.SegmentPublic)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func testConcurrentPublish(t *testing.T, ch ports.ExchangeChannel) {
	ctx := context.Background()
	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners [][]byte
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte{byte('a' + i)}
			published, err := ch.Publish(ctx, domain.ArtifactCACert, payload)
			assert.NoError(t, err)
			if published {
				mu.Lock()
				winners = append(winners, payload)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one publisher wins")
	got, ok, err := ch.Read(ctx, domain.ArtifactCACert)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, winners[0], got)
}
