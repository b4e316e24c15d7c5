package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds a full round of checks.
	// Default: 5 seconds
	Timeout time.Duration
}

// Report is the outcome of one round of checks.
type Report struct {
	Status  Status
	Checked time.Time
	// Results is keyed by checker name.
	Results map[string]Result
	// Order lists checker names in registration order.
	Order []string
}

// Aggregator runs registered checkers and combines their results.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	cfg := AggregatorConfig{Timeout: 5 * time.Second}
	if len(config) > 0 && config[0].Timeout > 0 {
		cfg.Timeout = config[0].Timeout
	}
	return &Aggregator{
		timeout:  cfg.Timeout,
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker under its Name. Registering the same name again
// replaces the checker but keeps its position.
func (a *Aggregator) Register(c Checker) {
	if c == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	name := c.Name()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = c
}

// Unregister removes a checker.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.checkers[name]; !ok {
		return
	}
	delete(a.checkers, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// CheckerNames returns the names of all registered checkers.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	c, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return runCheck(ctx, c), nil
}

// CheckAll runs every registered checker concurrently and returns the
// combined report. An empty aggregator is healthy.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	order := make([]string, len(a.order))
	copy(order, a.order)
	checkers := make([]Checker, len(order))
	for i, name := range order {
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = runCheck(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:  StatusHealthy,
		Checked: time.Now(),
		Results: make(map[string]Result, len(order)),
		Order:   order,
	}
	for i, name := range order {
		report.Results[name] = results[i]
		report.Status = report.Status.Worse(results[i].Status)
	}
	return report
}

// runCheck stops waiting once ctx is done; a checker that ignores ctx is
// left to finish in the background.
func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	ch := make(chan Result, 1)
	go func() {
		ch <- c.Check(ctx)
	}()

	select {
	case r := <-ch:
		r.Duration = time.Since(start)
		return r
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout)
		r.Duration = time.Since(start)
		return r
	}
}
