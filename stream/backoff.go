package stream

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffOpts configures the exponential retry policy. Zero fields take the
// value from DefaultBackoffOpts.
type BackoffOpts struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration
	// Multiplier scales the delay after every retry.
	Multiplier float64
	// MaxInterval caps a single delay.
	MaxInterval time.Duration
	// MaxElapsedTime is the cumulative retry budget. Once it is spent the
	// policy stops, and the pending failure is surfaced to the caller.
	MaxElapsedTime time.Duration
}

// DefaultBackoffOpts is used for the fields left unset in BackoffOpts.
var DefaultBackoffOpts = BackoffOpts{
	InitialInterval: 500 * time.Millisecond,
	Multiplier:      1.5,
	MaxInterval:     time.Minute,
	MaxElapsedTime:  5 * time.Minute,
}

// NewBackoff creates an exponential policy. NextBackOff returns backoff.Stop
// once MaxElapsedTime has passed since the last Reset.
func NewBackoff(opts BackoffOpts) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultBackoffOpts.InitialInterval
	if opts.InitialInterval > 0 {
		b.InitialInterval = opts.InitialInterval
	}
	b.Multiplier = DefaultBackoffOpts.Multiplier
	if opts.Multiplier > 0 {
		b.Multiplier = opts.Multiplier
	}
	b.MaxInterval = DefaultBackoffOpts.MaxInterval
	if opts.MaxInterval > 0 {
		b.MaxInterval = opts.MaxInterval
	}
	b.MaxElapsedTime = DefaultBackoffOpts.MaxElapsedTime
	if opts.MaxElapsedTime > 0 {
		b.MaxElapsedTime = opts.MaxElapsedTime
	}
	b.Reset()
	return b
}

// nextDelay returns the delay before the next attempt. Once the policy is
// exhausted it returns false and resets the policy, so that the same instance
// can serve a later, unrelated sequence of failures.
func nextDelay(b backoff.BackOff) (time.Duration, bool) {
	d := b.NextBackOff()
	if d == backoff.Stop {
		b.Reset()
		return 0, false
	}
	return d, true
}

// sleep waits for d. It returns early when ctx is done; the caller then goes
// on to the next attempt, which observes the cancellation.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
