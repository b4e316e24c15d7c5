package resilience

import (
	"context"
	"time"
)

// Executor composes Breaker, Retry and Timeout.
type Executor struct {
	breaker *Breaker
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor. With no options it runs op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry adds retry around each call.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithBreaker guards each call, including all of its retries, with b.
func WithBreaker(b *Breaker) ExecutorOption {
	return func(e *Executor) { e.breaker = b }
}

// WithTimeout bounds every attempt with d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// Execute runs op with the configured patterns: breaker outermost, then
// retry, then timeout.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	if e.timeout != nil {
		inner := run
		run = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
	}
	if e.retry != nil {
		inner := run
		run = func(ctx context.Context) error { return e.retry.Execute(ctx, inner) }
	}
	if e.breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return e.breaker.Execute(ctx, inner) }
	}
	return run(ctx)
}

// WithoutRetry returns an executor sharing e's breaker and timeout but never
// retrying.
func (e *Executor) WithoutRetry() *Executor {
	return &Executor{breaker: e.breaker, timeout: e.timeout}
}

// Breaker returns the configured breaker, or nil.
func (e *Executor) Breaker() *Breaker {
	return e.breaker
}
