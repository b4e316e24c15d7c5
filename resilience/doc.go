// Package resilience provides breaker, retry and timeout wrappers for store
// access.
//
// Retry re-runs an operation with exponential backoff while its error is
// classified as retryable; Timeout bounds a single attempt; Breaker stops
// calling a backend after consecutive failures and tries it again after a
// cooldown. Executor composes them, breaker outermost and timeout innermost,
// so every attempt gets its own deadline and a retried call counts once
// against the breaker:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBreaker(resilience.NewBreaker(resilience.BreakerConfig{
//	        IsFailure: store.IsUnavailable,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        RetryIf:     store.IsTransient,
//	    })),
//	    resilience.WithTimeout(2*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error { ... })
//
// Only idempotent operations should be wrapped with Retry.
package resilience
