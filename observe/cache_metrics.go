package observe

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics records query cache activity. Keys are reduced to their
// namespace (the text before the first ':') to bound attribute cardinality.
type CacheMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	fetches   metric.Float64Histogram
}

// NewCacheMetrics creates the cache.* instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	hits, err := meter.Int64Counter("cache.hits",
		metric.WithDescription("Cache lookups served from a live entry"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter("cache.misses",
		metric.WithDescription("Cache lookups that required a fetch"),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, err
	}
	evictions, err := meter.Int64Counter("cache.evictions",
		metric.WithDescription("Entries removed from the cache by reason"),
		metric.WithUnit("{entry}"))
	if err != nil {
		return nil, err
	}
	fetches, err := meter.Float64Histogram("cache.fetch.duration_ms",
		metric.WithDescription("Fetcher duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &CacheMetrics{hits: hits, misses: misses, evictions: evictions, fetches: fetches}, nil
}

func (m *CacheMetrics) RecordHit(ctx context.Context, key string) {
	m.hits.Add(ctx, 1, metric.WithAttributes(namespaceAttr(key)))
}

func (m *CacheMetrics) RecordMiss(ctx context.Context, key string) {
	m.misses.Add(ctx, 1, metric.WithAttributes(namespaceAttr(key)))
}

func (m *CacheMetrics) RecordEviction(ctx context.Context, reason string, n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *CacheMetrics) RecordFetch(ctx context.Context, key string, d time.Duration, err error) {
	m.fetches.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(
		namespaceAttr(key),
		attribute.String("outcome", Outcome(err)),
	))
}

func namespaceAttr(key string) attribute.KeyValue {
	ns, _, _ := strings.Cut(key, ":")
	return attribute.String("cache.namespace", ns)
}
