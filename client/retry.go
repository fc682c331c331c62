package client

import (
	"context"
	"errors"
	"time"
)

// RetryConfig controls the bounded-retry helper.
type RetryConfig struct {
	// MaxAttempts is the total number of invocations, first call included.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles after
	// every failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the standard retry policy: three attempts with
// exponential backoff starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Retry invokes fn until it succeeds or the attempt budget is spent. It is
// meant for idempotent calls only. Client errors other than 429 are returned
// immediately, as is a canceled context; the refresh-on-401 flow inside fn is
// unaffected because that path never surfaces a retryable error.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// isRetryable reports whether an error may be retried: network-class errors,
// per-attempt timeouts, and retryable statuses qualify; cancellation and other
// client errors do not. Timeouts stay retryable because the per-request
// deadline is shorter than the caller's context; an expired caller context is
// caught by the backoff select instead.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Status)
	}

	// No structured status: treat as a transport failure.
	return true
}
