// internal/backend/retry_test.go
package backend

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestRetrySucceedsAfterTransientFaults tests that the policy absorbs
// transient failures and returns the first successful result without
// consuming further attempts.
func TestRetrySucceedsAfterTransientFaults(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	calls := 0
	out, err := policy.Do(context.Background(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if out != "ok" {
		t.Errorf("out = %q", out)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

// TestRetryExhaustsAttempts tests that the policy gives up after exactly
// MaxAttempts tries and wraps the last error.
func TestRetryExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}
	calls := 0
	sentinel := errors.New("backend down")
	_, err := policy.Do(context.Background(), func() (string, error) {
		calls++
		return "", sentinel
	})
	if err == nil {
		t.Fatal("expected error after exhausted attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error should wrap the last failure: %v", err)
	}
}

// TestRetryHonorsContext tests that cancellation during backoff aborts the
// policy promptly instead of sleeping out the delay.
func TestRetryHonorsContext(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := policy.Do(ctx, func() (string, error) {
		return "", errors.New("always failing")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation should interrupt the backoff wait")
	}
}
