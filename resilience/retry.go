package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the second attempt.
	// Default: 50ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between attempts.
	// Default: 2s
	MaxDelay time.Duration

	// Jitter adds up to 25% random delay to each wait.
	Jitter bool

	// RetryIf reports whether err warrants another attempt.
	// Default: never retry.
	RetryIf func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs an operation with exponential backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a Retry, applying defaults.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 50 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = func(error) bool { return false }
	}
	return &Retry{config: config}
}

// Execute runs op until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil || !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func (r *Retry) delay(attempt int) time.Duration {
	d := r.config.InitialDelay << (attempt - 1)
	if d <= 0 || d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
