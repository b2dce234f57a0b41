package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Veraticus/sift/internal/service"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// WithRetry executes an operation with exponential backoff. Errors that are
// not retryable stop the loop immediately and are returned unwrapped.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.InitialDelay
	bo.MaxInterval = opts.MaxDelay
	bo.Multiplier = opts.Multiplier
	bo.MaxElapsedTime = 0

	attempt := 0
	var lastErr error
	err := backoff.Retry(func() error {
		attempt++
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempt < opts.MaxAttempts {
			slog.Warn("Operation failed, retrying",
				"attempt", attempt,
				"max_attempts", opts.MaxAttempts,
				"error", err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(opts.MaxAttempts-1)), ctx))

	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if lastErr != nil && IsRetryable(lastErr) {
		return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, lastErr)
	}
	return err
}
