package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Config holds the configuration for retry logic
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// calculateDelay computes the delay for the given attempt using exponential backoff
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Func is one attempt of a retryable operation. It returns the result, whether
// a failure is worth retrying, and the error itself.
type Func[T any] func(attempt int) (result T, retryable bool, err error)

// Options configures retry behavior
type Options struct {
	Config  Config
	Logger  *zap.Logger
	APIName string
}

// Do runs fn with exponential backoff until it succeeds, fails with a
// non-retryable error, or exhausts the configured attempts.
func Do[T any](ctx context.Context, opts Options, fn Func[T]) (T, error) {
	var zero T
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := opts.Config.calculateDelay(attempt - 1)
			log.Debug("retrying request",
				zap.String("api", opts.APIName),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", opts.Config.MaxRetries+1),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, retryable, err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				log.Debug("request succeeded after retry",
					zap.String("api", opts.APIName),
					zap.Int("attempt", attempt+1))
			}
			return result, nil
		}

		lastErr = err
		if !retryable {
			return zero, err
		}

		log.Warn("retryable request failure",
			zap.String("api", opts.APIName),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", opts.Config.MaxRetries+1),
			zap.Error(err))
	}

	return zero, &ExhaustedError{APIName: opts.APIName, MaxAttempts: opts.Config.MaxRetries + 1, LastErr: lastErr}
}

// ExhaustedError represents an error when all retry attempts have been exhausted
type ExhaustedError struct {
	APIName     string
	MaxAttempts int
	LastErr     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry attempts exhausted for %s API after %d attempts: %v", e.APIName, e.MaxAttempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}
