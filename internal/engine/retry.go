package engine

import (
	"context"
	"time"
)

// BackoffPolicy controls confirmation polling and resubmission pacing.
type BackoffPolicy struct {
	// InitialDelay is the first poll interval.
	InitialDelay time.Duration
	// MaxDelay caps the poll interval growth.
	MaxDelay time.Duration
	// Multiplier grows the delay between polls.
	Multiplier float64
	// WaitBudget bounds the total confirmation wait per submission attempt.
	WaitBudget time.Duration
	// MaxAttempts is the total number of ledger submissions allowed for one
	// intent, including the first.
	MaxAttempts uint32
}

// DefaultBackoffPolicy returns the standard pacing: polls start at 500ms,
// cap at 10s, each attempt waits up to 60s, three submissions total.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		WaitBudget:   60 * time.Second,
		MaxAttempts:  3,
	}
}

// next returns the delay that follows d under the policy.
func (p BackoffPolicy) next(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * p.Multiplier)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
