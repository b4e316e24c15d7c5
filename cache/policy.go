package cache

import "time"

// Policy configures TTL defaults and limits.
type Policy struct {
	// DefaultTTL is used when a caller passes ttl <= 0.
	// If zero, such calls bypass the cache.
	DefaultTTL time.Duration

	// MaxTTL clamps every TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns DefaultTTL 30s, MaxTTL 10m.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 30 * time.Second,
		MaxTTL:     10 * time.Minute,
	}
}

// NoCachePolicy returns a policy under which only explicit TTLs are cached.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache reports whether calls without an explicit TTL are cached.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use for override, applying the default
// and the maximum. A result <= 0 means do not cache.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
