package service

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep implements Sleeper.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// RealSleeper waits on a timer.
var RealSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// RetryPolicy bounds how long the resolver waits for an out-of-band provisioner.
// Attempt n (1-based) waits Delay * Backoff^(n-1) before re-reading.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

// DefaultProvisioningRetry waits once for 500ms.
func DefaultProvisioningRetry() RetryPolicy {
	return RetryPolicy{Attempts: 1, Delay: 500 * time.Millisecond, Backoff: 1}
}

// DelayFor returns the wait before re-check attempt n (1-based).
func (p RetryPolicy) DelayFor(n int) time.Duration {
	d := p.Delay
	if p.Backoff <= 1 {
		return d
	}
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * p.Backoff)
	}
	return d
}
