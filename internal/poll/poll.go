// Package poll provides a cancellable fixed-interval retry primitive.
//
// A probe is called up to Policy.Attempts times, Policy.Interval apart. The
// first probe runs immediately and no wait follows the last one, so a policy
// of 30 attempts at 2s gives up after roughly 58s.
package poll

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy controls how often and how many times a probe runs.
type Policy struct {
	Interval time.Duration
	Attempts int
	// OnAttempt, when set, is called after every probe.
	OnAttempt func(attempt int, ready bool)
}

// For converts a timeout into a policy: ceil(timeout/interval) attempts, at
// least one.
func For(timeout, interval time.Duration) Policy {
	attempts := 1
	if interval > 0 && timeout > 0 {
		attempts = int(math.Ceil(float64(timeout) / float64(interval)))
	}
	if attempts < 1 {
		attempts = 1
	}
	return Policy{Interval: interval, Attempts: attempts}
}

// Result is either Ready with a Value, or timed out.
type Result[T any] struct {
	Value    T
	Ready    bool
	Attempts int
	Elapsed  time.Duration
}

// TimedOut reports whether every attempt ran without the probe becoming ready.
func (r Result[T]) TimedOut() bool {
	return !r.Ready
}

// Probe checks once. ready=false means "not yet"; a non-nil error aborts the
// poll immediately.
type Probe[T any] func(ctx context.Context) (value T, ready bool, err error)

// Until runs probe according to policy. It returns a Ready result, a timed out
// result with a nil error, or the probe's error. Cancelling ctx stops the wait
// and returns ctx.Err() wrapped.
func Until[T any](ctx context.Context, policy Policy, probe Probe[T]) (Result[T], error) {
	var res Result[T]
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	start := time.Now()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("poll canceled after %d attempts: %w", res.Attempts, err)
		}

		value, ready, err := probe(ctx)
		res.Attempts = attempt
		if policy.OnAttempt != nil {
			policy.OnAttempt(attempt, ready && err == nil)
		}
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}
		if ready {
			res.Value = value
			res.Ready = true
			res.Elapsed = time.Since(start)
			return res, nil
		}
		if attempt == policy.Attempts {
			break
		}

		if timer == nil {
			timer = time.NewTimer(policy.Interval)
		} else {
			timer.Reset(policy.Interval)
		}
		select {
		case <-ctx.Done():
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("poll canceled after %d attempts: %w", res.Attempts, ctx.Err())
		case <-timer.C:
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}
