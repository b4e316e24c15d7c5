package health

import (
	"context"
	"fmt"
	"time"

	"github.com/embld/contentcore/resilience"
	"github.com/embld/contentcore/store"
)

// StoreCheckerConfig configures a StoreChecker.
type StoreCheckerConfig struct {
	// SlowThreshold marks the store degraded when a ping takes longer.
	// Default: 500ms
	SlowThreshold time.Duration

	// Breaker, when set, is the breaker guarding store calls. An open
	// breaker reports the store unhealthy even if a ping succeeds.
	Breaker *resilience.Breaker
}

// StoreChecker pings the relational store.
type StoreChecker struct {
	pinger  store.Pinger
	slow    time.Duration
	breaker *resilience.Breaker
}

// NewStoreChecker creates a StoreChecker.
func NewStoreChecker(p store.Pinger, cfg StoreCheckerConfig) *StoreChecker {
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 500 * time.Millisecond
	}
	return &StoreChecker{pinger: p, slow: cfg.SlowThreshold, breaker: cfg.Breaker}
}

// Name returns "store".
func (c *StoreChecker) Name() string {
	return "store"
}

// Check pings the store.
func (c *StoreChecker) Check(ctx context.Context) Result {
	start := time.Now()
	err := c.pinger.Ping(ctx)
	elapsed := time.Since(start)
	details := map[string]any{"ping_ms": float64(elapsed) / float64(time.Millisecond)}
	circuit := resilience.StateClosed
	if c.breaker != nil {
		circuit = c.breaker.State()
		details["circuit"] = circuit.String()
	}

	switch {
	case err != nil:
		return Unhealthy("store unreachable", err).WithDetails(details)
	case circuit == resilience.StateOpen:
		return Unhealthy("store circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case circuit == resilience.StateHalfOpen:
		return Degraded("store circuit half-open").WithDetails(details)
	case elapsed > c.slow:
		return Degraded(fmt.Sprintf("store ping slow: %s", elapsed.Round(time.Millisecond))).WithDetails(details)
	default:
		return Healthy("store reachable").WithDetails(details)
	}
}
