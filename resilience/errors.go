package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrMaxRetriesExceeded wraps the last error once all attempts are used.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when an attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrCircuitOpen is returned without calling the operation while a
	// Breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit open")
)
