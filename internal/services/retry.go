package services

import (
	"context"
	"time"
)

// RetryPolicy controls how Retry paces repeated attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Factor multiplies the delay after each failed attempt.
	Factor float64
}

// DefaultRetryPolicy suits the short-lived external calls in the pipeline:
// three attempts starting at one second, doubling in between.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Second, Factor: 2}
}

// Retry invokes fn until it succeeds, the attempt budget is exhausted, or the
// context is done. Non-retryable errors (validation, configuration,
// cancellation) abort immediately.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.Factor < 1 {
		policy.Factor = 1
	}
	delay := policy.Delay

	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Factor)
	}
	return err
}
