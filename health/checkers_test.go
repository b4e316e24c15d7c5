package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/embld/contentcore/cache"
	"github.com/embld/contentcore/resilience"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type statsFunc func() cache.Stats

func (f statsFunc) Stats() cache.Stats { return f() }

func TestStoreChecker(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name string
		ping func(context.Context) error
		want Status
	}{
		{name: "reachable", ping: func(context.Context) error { return nil }, want: StatusHealthy},
		{name: "unreachable", ping: func(context.Context) error { return down }, want: StatusUnhealthy},
		{
			name: "slow",
			ping: func(context.Context) error {
				time.Sleep(5 * time.Millisecond)
				return nil
			},
			want: StatusDegraded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewStoreChecker(pingerFunc(tt.ping), StoreCheckerConfig{SlowThreshold: time.Millisecond})
			if c.Name() != "store" {
				t.Errorf("Name() = %v", c.Name())
			}
			r := c.Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tt.want, r.Message)
			}
			if _, ok := r.Details["ping_ms"]; !ok {
				t.Error("missing ping_ms detail")
			}
		})
	}
}

func TestStoreChecker_UnhealthyKeepsError(t *testing.T) {
	down := errors.New("down")
	r := NewStoreChecker(pingerFunc(func(context.Context) error { return down }), StoreCheckerConfig{}).
		Check(context.Background())
	if !errors.Is(r.Error, down) {
		t.Errorf("Error = %v, want %v", r.Error, down)
	}
}

func TestCacheChecker(t *testing.T) {
	c := NewCacheChecker(statsFunc(func() cache.Stats {
		return cache.Stats{Entries: 3, Hits: 3, Misses: 1, InFlight: 2}
	}), CacheCheckerConfig{MaxInFlight: 4})

	r := c.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("Status = %v, want healthy", r.Status)
	}
	if got := r.Details["hit_ratio"]; got != 0.75 {
		t.Errorf("hit_ratio = %v, want 0.75", got)
	}
	if got := r.Details["entries"]; got != 3 {
		t.Errorf("entries = %v, want 3", got)
	}
}

func TestCacheChecker_DegradedWhenBacklogged(t *testing.T) {
	c := NewCacheChecker(statsFunc(func() cache.Stats {
		return cache.Stats{InFlight: 10}
	}), CacheCheckerConfig{MaxInFlight: 4})

	if r := c.Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", r.Status)
	}
}

func TestCacheChecker_MemoryCache(t *testing.T) {
	mc := cache.NewMemoryCache(cache.DefaultPolicy())
	ctx := context.Background()
	_, err := mc.GetOrCompute(ctx, "k", time.Minute, nil, func(context.Context) (any, error) { return 1, nil })
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}

	r := NewCacheChecker(mc, CacheCheckerConfig{}).Check(ctx)
	if r.Status != StatusHealthy || r.Details["entries"] != 1 {
		t.Errorf("Check() = %+v", r)
	}
}

func TestStoreChecker_ReportsCircuit(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	c := NewStoreChecker(pingerFunc(func(context.Context) error { return nil }), StoreCheckerConfig{Breaker: b})

	r := c.Check(context.Background())
	if r.Status != StatusHealthy || r.Details["circuit"] != "closed" {
		t.Fatalf("closed breaker: %+v", r)
	}

	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("down") })
	r = c.Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, resilience.ErrCircuitOpen) {
		t.Errorf("open breaker: %+v", r)
	}
}
