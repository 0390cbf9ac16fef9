// internal/backend/retry.go
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/scourlabs/scour/internal/logging"
)

// RetryPolicy wraps a backend call site with bounded retries and exponential
// backoff. Only transport faults are retried; parse and validation failures
// have their own feedback path and never reach this policy.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy mirrors the conventional 3-attempt, 1s-to-10s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second}
}

// Do invokes call until it succeeds, the attempt budget is exhausted, or ctx
// is canceled. The delay doubles per attempt up to MaxDelay.
func (p RetryPolicy) Do(ctx context.Context, call func() (string, error)) (string, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := call()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		logging.LogEvent("backend call failed (attempt %d/%d), retrying in %s: %v", attempt, attempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return "", fmt.Errorf("backend call failed after %d attempts: %w", attempts, lastErr)
}
