// Package cache memoizes read queries with time-based and tag-based
// invalidation.
//
// A MemoryCache entry lives for its TTL and is evicted lazily when a read
// finds it stale. Invalidate removes every entry carrying a tag at once.
// Concurrent misses for one key coalesce onto a single fetch, and a failed
// fetch stores nothing.
package cache
