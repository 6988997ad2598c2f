package ai

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// RetryConfig bounds the retry loop around a provider call.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// delay returns the backoff before the given 1-based retry, capped at
// MaxDelay.
func (c RetryConfig) delay(retry int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < retry; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable. WithRetry returns it without
// burning further attempts. Client errors such as HTTP 400 or 401 will
// not resolve on their own.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// WithRetry runs fn up to cfg.MaxAttempts times with exponential
// backoff between attempts. Context cancellation and errors marked with
// Permanent end the loop immediately.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.delay(attempt)):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return lastErr
		}
	}

	return lastErr
}

// IsRetryableHTTPStatus reports whether a response status is worth
// another attempt: rate limiting and server-side failures.
func IsRetryableHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}
