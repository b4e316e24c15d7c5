package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds each operation with a deadline.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a Timeout. A non-positive d defaults to 5s.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 5 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured deadline.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a derived deadline. When that deadline (and not the
// parent's) fires, the error is ErrTimeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	err := op(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
