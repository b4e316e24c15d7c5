package invalidation

import "context"

// Invalidator removes cached values by tag. cache.MemoryCache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, tag string) int
}

// Evict returns a Handler that invalidates ev.Tag in c.
func Evict(c Invalidator) Handler {
	return func(ctx context.Context, ev Event) {
		c.Invalidate(ctx, ev.Tag)
	}
}
