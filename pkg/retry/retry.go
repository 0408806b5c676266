package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/michaelhil/open-neon-go/errors"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return stderrors.As(err, &nre)
}

// Config provides retry configuration.
type Config struct {
	MaxAttempts int           // Maximum number of attempts (<=0 = run once)
	Interval    time.Duration // Delay between attempts
	MaxInterval time.Duration // Ceiling on the delay
	Multiplier  float64       // Backoff multiplier; 1.0 = fixed interval
	AddJitter   bool          // Add up to 25% randomness per wait
}

// Fixed returns a fixed-interval config: evenly spaced attempts with
// no growth and no jitter.
func Fixed(attempts int, interval time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		Interval:    interval,
		MaxInterval: interval,
		Multiplier:  1.0,
	}
}

// Do executes fn up to cfg.MaxAttempts times, waiting between attempts.
// A context cancellation during a wait returns immediately with the
// context's error wrapped as a General cancellation.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}

	var lastErr error
	delay := cfg.Interval

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return errors.Cancelled(fmt.Sprintf("retry attempt %d", attempt))
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.AddJitter {
			randMu.Lock()
			wait += time.Duration(randSource.Int63n(int64(delay/4) + 1))
			randMu.Unlock()
		}

		if err := Sleep(ctx, wait); err != nil {
			return err
		}

		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next > cfg.MaxInterval {
			next = cfg.MaxInterval
		}
		delay = next
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
// Cancellation returns a General cancellation error.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Cancelled("wait")
	case <-timer.C:
		return nil
	}
}

// WithTimeout runs fn under a deadline. The operation receives a
// derived context it must honour; a deadline hit surfaces as a
// General timeout error naming the operation.
func WithTimeout[T any](ctx context.Context, operation string, timeout time.Duration,
	fn func(ctx context.Context) (T, error)) (T, error) {

	var zero T
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fn(ctx)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return zero, errors.Timeout(operation, timeout)
		}
		return zero, err
	}
	return result, nil
}
