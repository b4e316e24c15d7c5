package resilience

import (
	"context"
	"sync"
	"time"
)

// State is a Breaker state.
type State int

const (
	// StateClosed passes calls through.
	StateClosed State = iota
	// StateOpen rejects calls with ErrCircuitOpen.
	StateOpen
	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	// Default: 5
	Threshold int

	// Cooldown is how long the breaker stays open before admitting trial calls.
	// Default: 10s
	Cooldown time.Duration

	// Trials is the number of calls admitted while half-open.
	// Default: 1
	Trials int

	// IsFailure reports whether err counts against the backend. Errors that
	// describe the request rather than the backend (no rows, conflicts) should
	// return false.
	// Default: any non-nil error.
	IsFailure func(err error) bool

	// OnStateChange is called with the breaker lock held and must not call
	// back into the Breaker.
	OnStateChange func(from, to State)

	// Now overrides the clock.
	Now func() time.Time
}

// Breaker stops calling a failing backend until a cooldown has passed.
type Breaker struct {
	config BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trials   int
}

// NewBreaker creates a closed Breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.Threshold <= 0 {
		config.Threshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 10 * time.Second
	}
	if config.Trials <= 0 {
		config.Trials = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Breaker{config: config}
}

// Execute runs op unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := op(ctx)
	b.record(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.trials >= b.config.Trials {
			return ErrCircuitOpen
		}
		b.trials++
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && b.config.IsFailure(err)
	switch b.state {
	case StateClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.Threshold {
			b.openLocked()
		}
	case StateHalfOpen:
		if failed {
			b.openLocked()
			return
		}
		b.failures = 0
		b.transitionLocked(StateClosed)
	}
}

func (b *Breaker) openLocked() {
	b.openedAt = b.config.Now()
	b.transitionLocked(StateOpen)
}

// stateLocked moves an open breaker to half-open once the cooldown passes.
func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && b.config.Now().Sub(b.openedAt) >= b.config.Cooldown {
		b.trials = 0
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}
