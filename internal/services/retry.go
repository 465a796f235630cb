package services

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds retries for non-destructive operations. Destructive
// filesystem mutations are never retried.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry is used by probe and enrichment callers.
var DefaultRetry = RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}

// Retry invokes fn up to policy.Attempts times with exponential backoff,
// stopping early on success, context cancellation, or a non-recoverable
// error marker.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Wrap(ErrCancelled, "retry", "wait", "context cancelled between attempts", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrCancelled) || errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
		if !Recoverable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
