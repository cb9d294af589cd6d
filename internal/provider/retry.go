package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how transient provider failures are retried.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	// MaxRetryAfter caps how long a server's Retry-After is honored.
	MaxRetryAfter time.Duration
}

// DefaultRetryPolicy retries a transient failure once after a short delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    1,
		Delay:         750 * time.Millisecond,
		MaxRetryAfter: 10 * time.Second,
	}
}

func (p RetryPolicy) delayFor(err error) time.Duration {
	var unavailable *ErrProviderUnavailable
	if errors.As(err, &unavailable) {
		ra := unavailable.RetryAfter
		if ra > p.Delay && ra <= p.MaxRetryAfter {
			return ra
		}
	}
	return p.Delay
}

// Retry calls fn, retrying it while it fails with a retryable error and the
// policy allows another attempt. Non-retryable errors are returned at once.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := retry.WithMaxRetries(uint64(maxRetries), retry.BackoffFunc(func() (time.Duration, bool) {
		return p.delayFor(lastErr), false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			lastErr = err
			if IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
