package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/singleflight"

	"github.com/embld/contentcore/observe"
)

// Eviction reasons reported to a Recorder.
const (
	EvictExpired     = "expired"
	EvictInvalidated = "invalidated"
	EvictDeleted     = "deleted"
	EvictReplaced    = "replaced"
)

// Recorder receives cache activity. observe.CacheMetrics implements it.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Calls are made outside the cache lock and must return quickly.
type Recorder interface {
	RecordHit(ctx context.Context, key string)
	RecordMiss(ctx context.Context, key string)
	RecordEviction(ctx context.Context, reason string, n int)
	RecordFetch(ctx context.Context, key string, d time.Duration, err error)
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock replaces time.Now for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRecorder reports hits, misses, evictions and fetch latency to r.
func WithRecorder(r Recorder) Option {
	return func(c *MemoryCache) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithFetchTimeout bounds each shared fetch. Fetches run detached from the
// caller that started them, so this is their only deadline. Zero means none.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *MemoryCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithLogger sets the logger for fetch failures and invalidations.
func WithLogger(l observe.Logger) Option {
	return func(c *MemoryCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// Stats is a point-in-time snapshot of a MemoryCache.
type Stats struct {
	Entries   int    `json:"entries"`
	Tags      int    `json:"tags"`
	InFlight  int    `json:"in_flight"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Fetches   uint64 `json:"fetches"`
	Evictions uint64 `json:"evictions"`
}

// MemoryCache is a process-local Cache.
//
// A single mutex guards the entry table, the tag index and the flight table.
// Fetchers run outside the lock. Each miss joins the current flight for its
// key; Invalidate and Delete detach flights so their results are returned to
// the callers already waiting but never stored.
type MemoryCache struct {
	policy       Policy
	now          func() time.Time
	recorder     Recorder
	logger       observe.Logger
	fetchTimeout time.Duration

	group singleflight.Group

	mu        sync.Mutex
	entries   map[string]*entry
	tagIndex  map[string]mapset.Set[string] // tag -> keys
	flights   map[string]*flight            // key -> current flight
	flightSeq uint64
	stats     Stats
}

type entry struct {
	value      any
	computedAt time.Time
	ttl        time.Duration
	tags       mapset.Set[string]
}

func (e *entry) stale(now time.Time) bool {
	return now.Sub(e.computedAt) >= e.ttl
}

type flight struct {
	id   string // singleflight key, unique per flight
	ttl  time.Duration
	tags mapset.Set[string]

	// Set once the fetch returns, for callers that picked up the flight
	// just as singleflight released it.
	done bool
	val  any
	err  error
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache(policy Policy, opts ...Option) *MemoryCache {
	c := &MemoryCache{
		policy:   policy,
		now:      time.Now,
		recorder: nopRecorder{},
		logger:   observe.NopLogger(),
		entries:  make(map[string]*entry),
		tagIndex: make(map[string]mapset.Set[string]),
		flights:  make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute implements Cache.
//
// A shared fetch runs under the starting caller's context values but not its
// cancellation, so one caller leaving does not fail the others. Each caller
// waits only until its own context is done.
func (c *MemoryCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, tags []string, fetch Fetcher) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if fetch == nil {
		return nil, ErrNilFetcher
	}
	for _, tag := range tags {
		if err := ValidateTag(tag); err != nil {
			return nil, err
		}
	}

	ttl = c.policy.EffectiveTTL(ttl)
	if ttl <= 0 {
		return fetch(ctx)
	}

	c.mu.Lock()
	v, ok, expired := c.lookupLocked(key)
	if ok {
		c.stats.Hits++
		c.mu.Unlock()
		c.recorder.RecordHit(ctx, key)
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	f, joined := c.flights[key]
	if !joined {
		c.flightSeq++
		f = &flight{
			id:   key + "\x00" + strconv.FormatUint(c.flightSeq, 10),
			ttl:  ttl,
			tags: mapset.NewThreadUnsafeSet(tags...),
		}
		c.flights[key] = f
	}
	c.stats.Misses++
	c.mu.Unlock()

	if expired {
		c.recorder.RecordEviction(ctx, EvictExpired, 1)
	}
	c.recorder.RecordMiss(ctx, key)

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(f.id, func() (any, error) {
		return c.populate(fetchCtx, key, f, fetch)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// populate runs fetch for flight f and stores the result if f is still the
// current flight for key.
func (c *MemoryCache) populate(ctx context.Context, key string, f *flight, fetch Fetcher) (any, error) {
	c.mu.Lock()
	if f.done {
		v, err := f.val, f.err
		c.mu.Unlock()
		return v, err
	}
	c.stats.Fetches++
	c.mu.Unlock()

	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}
	start := time.Now()
	v, err := runFetch(ctx, fetch)
	c.recorder.RecordFetch(ctx, key, time.Since(start), err)

	c.mu.Lock()
	f.done, f.val, f.err = true, v, err
	current := c.flights[key] == f
	if current {
		delete(c.flights, key)
	}
	replaced := false
	if err == nil && current {
		replaced = c.storeLocked(key, v, f)
	}
	c.mu.Unlock()

	switch {
	case err != nil:
		c.logger.Warn(ctx, "cache fetch failed", observe.F("key", key), observe.Err(err))
		return nil, err
	case !current:
		c.logger.Debug(ctx, "cache fetch detached, result not stored", observe.F("key", key))
	case replaced:
		c.recorder.RecordEviction(ctx, EvictReplaced, 1)
	}
	return v, nil
}

// runFetch turns a panicking fetcher into an error. DoChan would otherwise
// re-panic on a goroutine no caller can recover.
func runFetch(ctx context.Context, fetch Fetcher) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrFetchPanic, r)
		}
	}()
	return fetch(ctx)
}

// Invalidate implements Cache.
func (c *MemoryCache) Invalidate(ctx context.Context, tag string) int {
	c.mu.Lock()
	evicted := 0
	if keys, ok := c.tagIndex[tag]; ok {
		for _, key := range keys.ToSlice() {
			c.removeLocked(key)
			evicted++
		}
	}
	detached := 0
	for key, f := range c.flights {
		if f.tags.Contains(tag) {
			delete(c.flights, key)
			detached++
		}
	}
	c.mu.Unlock()

	c.recorder.RecordEviction(ctx, EvictInvalidated, evicted)
	if evicted > 0 || detached > 0 {
		c.logger.Debug(ctx, "cache tag invalidated",
			observe.F("tag", tag),
			observe.F("evicted", evicted),
			observe.F("detached", detached),
		)
	}
	return evicted
}

// Delete implements Cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	_, ok := c.entries[key]
	if ok {
		c.removeLocked(key)
	}
	delete(c.flights, key)
	c.mu.Unlock()

	if ok {
		c.recorder.RecordEviction(ctx, EvictDeleted, 1)
	}
	return nil
}

// Len returns the number of stored entries, including stale ones not yet
// evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	s.Tags = len(c.tagIndex)
	s.InFlight = len(c.flights)
	return s
}

// lookupLocked returns the live value for key. A stale entry is evicted and
// reported through expired.
func (c *MemoryCache) lookupLocked(key string) (v any, ok, expired bool) {
	e, found := c.entries[key]
	if !found {
		return nil, false, false
	}
	if e.stale(c.now()) {
		c.removeLocked(key)
		return nil, false, true
	}
	return e.value, true, false
}

func (c *MemoryCache) storeLocked(key string, v any, f *flight) (replaced bool) {
	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
		replaced = true
	}
	c.entries[key] = &entry{
		value:      v,
		computedAt: c.now(),
		ttl:        f.ttl,
		tags:       f.tags,
	}
	f.tags.Each(func(tag string) bool {
		keys, ok := c.tagIndex[tag]
		if !ok {
			keys = mapset.NewThreadUnsafeSet[string]()
			c.tagIndex[tag] = keys
		}
		keys.Add(key)
		return false
	})
	return replaced
}

func (c *MemoryCache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.stats.Evictions++
	e.tags.Each(func(tag string) bool {
		if keys, ok := c.tagIndex[tag]; ok {
			keys.Remove(key)
			if keys.Cardinality() == 0 {
				delete(c.tagIndex, tag)
			}
		}
		return false
	})
}

type nopRecorder struct{}

func (nopRecorder) RecordHit(context.Context, string)                         {}
func (nopRecorder) RecordMiss(context.Context, string)                        {}
func (nopRecorder) RecordEviction(context.Context, string, int)               {}
func (nopRecorder) RecordFetch(context.Context, string, time.Duration, error) {}

var (
	_ Cache    = (*MemoryCache)(nil)
	_ Recorder = (*observe.CacheMetrics)(nil)
)
