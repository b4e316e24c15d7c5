package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCacheMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	m, err := NewCacheMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewCacheMetrics failed: %v", err)
	}
	ctx := context.Background()

	m.RecordHit(ctx, "idea-detail:42")
	m.RecordHit(ctx, "idea-detail:43")
	m.RecordMiss(ctx, "ideas-list")
	m.RecordEviction(ctx, "invalidated", 3)
	m.RecordEviction(ctx, "expired", 0)
	m.RecordFetch(ctx, "ideas-list", 12*time.Millisecond, nil)
	m.RecordFetch(ctx, "ideas-list", 12*time.Millisecond, errors.New("db down"))

	rm := collect(t, reader)

	if got := sumValue(t, rm, "cache.hits"); got != 2 {
		t.Errorf("cache.hits = %d, want 2", got)
	}
	if got := sumValue(t, rm, "cache.misses"); got != 1 {
		t.Errorf("cache.misses = %d, want 1", got)
	}
	if got := sumValue(t, rm, "cache.evictions"); got != 3 {
		t.Errorf("cache.evictions = %d, want 3", got)
	}

	hits := findMetric(rm, "cache.hits").Data.(metricdata.Sum[int64])
	if len(hits.DataPoints) != 1 {
		t.Fatalf("expected hits to share one namespace data point, got %d", len(hits.DataPoints))
	}
	ns, _ := hits.DataPoints[0].Attributes.Value(attribute.Key("cache.namespace"))
	if ns.AsString() != "idea-detail" {
		t.Errorf("cache.namespace = %q, want idea-detail", ns.AsString())
	}

	fetch := findMetric(rm, "cache.fetch.duration_ms")
	if fetch == nil {
		t.Fatal("cache.fetch.duration_ms not found")
	}
	if n := len(fetch.Data.(metricdata.Histogram[float64]).DataPoints); n != 2 {
		t.Errorf("expected 2 fetch data points (ok, error), got %d", n)
	}
}
