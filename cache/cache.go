package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// MaxTagLength is the maximum allowed length for a tag.
const MaxTagLength = 256

// Sentinel errors for cache operations.
var (
	ErrNilCache     = errors.New("cache: cache is nil")
	ErrInvalidKey   = errors.New("cache: key is invalid")
	ErrKeyTooLong   = errors.New("cache: key exceeds max length")
	ErrInvalidTag   = errors.New("cache: tag is invalid")
	ErrNilFetcher   = errors.New("cache: fetcher is nil")
	ErrTypeMismatch = errors.New("cache: cached value has unexpected type")
	ErrFetchPanic   = errors.New("cache: fetcher panicked")
)

// Fetcher computes the value for a key, typically by querying the store.
type Fetcher func(ctx context.Context) (any, error)

// Cache memoizes fetch results under a key, a TTL and a set of tags.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Single-flight: concurrent misses for the same key share one fetch.
//   - Errors: a failed fetch is returned to every waiting caller and nothing
//     is stored.
//   - Context: a caller whose context ends stops waiting; the shared fetch
//     continues for the remaining callers.
//   - Ownership: cached values are shared between callers and must be treated
//     as read-only.
type Cache interface {
	// GetOrCompute returns the live value for key, or runs fetch and stores its
	// result for ttl under tags. ttl <= 0 selects the cache's default.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, tags []string, fetch Fetcher) (any, error)

	// Invalidate removes every entry tagged with tag and returns how many were
	// removed. Fetches already in flight for such entries are not stored.
	Invalidate(ctx context.Context, tag string) int

	// Delete removes the entry for key. Idempotent.
	Delete(ctx context.Context, key string) error
}

// Fetch is a typed wrapper over Cache.GetOrCompute.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, tags []string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return zero, ErrNilCache
	}
	if fn == nil {
		return zero, ErrNilFetcher
	}
	v, err := c.GetOrCompute(ctx, key, ttl, tags, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrTypeMismatch, key, v)
	}
	return typed, nil
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r\x00") {
		return ErrInvalidKey
	}
	return nil
}

// ValidateTag checks if a tag is valid.
func ValidateTag(tag string) error {
	if strings.TrimSpace(tag) == "" || len(tag) > MaxTagLength || strings.ContainsAny(tag, "\n\r\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return nil
}
