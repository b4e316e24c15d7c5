package health

import (
	"context"
	"fmt"

	"github.com/embld/contentcore/cache"
)

// StatsSource reports cache statistics. cache.MemoryCache implements it.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheCheckerConfig configures a CacheChecker.
type CacheCheckerConfig struct {
	// MaxInFlight marks the cache degraded when more recomputations are
	// outstanding, which usually means the store is slow.
	// Default: 64
	MaxInFlight int
}

// CacheChecker reports query cache occupancy and hit ratio.
type CacheChecker struct {
	src         StatsSource
	maxInFlight int
}

// NewCacheChecker creates a CacheChecker.
func NewCacheChecker(src StatsSource, cfg CacheCheckerConfig) *CacheChecker {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 64
	}
	return &CacheChecker{src: src, maxInFlight: cfg.MaxInFlight}
}

// Name returns "cache".
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check reports the cache statistics.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	s := c.src.Stats()
	ratio := 0.0
	if total := s.Hits + s.Misses; total > 0 {
		ratio = float64(s.Hits) / float64(total)
	}
	details := map[string]any{
		"entries":   s.Entries,
		"tags":      s.Tags,
		"in_flight": s.InFlight,
		"hits":      s.Hits,
		"misses":    s.Misses,
		"evictions": s.Evictions,
		"hit_ratio": ratio,
	}

	if s.InFlight > c.maxInFlight {
		return Degraded(fmt.Sprintf("%d recomputations in flight", s.InFlight)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d entries", s.Entries)).WithDetails(details)
}

var _ StatsSource = (*cache.MemoryCache)(nil)
