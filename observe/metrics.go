package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutcomeOK is the outcome recorded for a nil error.
const OutcomeOK = "ok"

// Outcome classifies err for metrics and spans. Errors in the chain that
// implement Outcome() string supply their own label; anything else is "error".
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var o interface{ Outcome() string }
	if errors.As(err, &o) {
		return o.Outcome()
	}
	return "error"
}

// Metrics records operation counts and latencies.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates instruments named <prefix>.total and
// <prefix>.duration_ms. The mutation coordinator uses prefix "mutation".
func NewMetrics(meter metric.Meter, prefix string) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		prefix+".total",
		metric.WithDescription("Total number of operations by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		prefix+".duration_ms",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{totalCount: totalCount, durationHist: durationHist}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op", meta.Name),
		attribute.String("outcome", Outcome(err)),
	}
	if meta.Table != "" {
		attrs = append(attrs, attribute.String("table", meta.Table))
	}

	m.totalCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, error) {}
