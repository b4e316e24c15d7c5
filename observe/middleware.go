package observe

import (
	"context"
	"fmt"
	"time"
)

// Middleware wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Run is safe for concurrent use.
//   - Context: the span context is passed to op.
//   - Errors: errors from op are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a Middleware. Nil components become no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger, now: time.Now}
}

// Run executes op inside a span, records its duration and outcome, and logs
// completion at debug or failure at warn.
func (m *Middleware) Run(ctx context.Context, meta OpMeta, op func(ctx context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := m.now()
	defer func() {
		// The span is closed before a panic continues up the stack.
		if r := recover(); r != nil {
			m.tracer.EndSpan(span, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err := op(ctx)

	duration := m.now().Sub(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, meta, duration, err)

	fields := append(meta.fields(),
		Field{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)},
		Field{Key: "outcome", Value: Outcome(err)},
	)
	if err != nil {
		m.logger.Warn(ctx, "operation failed", append(fields, Err(err))...)
	} else {
		m.logger.Debug(ctx, "operation completed", fields...)
	}
	return err
}

// MiddlewareFromObserver builds a Middleware from obs with metrics named
// under prefix.
func MiddlewareFromObserver(obs Observer, prefix string) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter(), prefix)
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
