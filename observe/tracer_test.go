package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (*tracetest.SpanRecorder, Tracer) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return rec, NewTracer(tp.Tracer("test"))
}

func TestOpMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta OpMeta
		want string
	}{
		{meta: OpMeta{Component: "mutation", Name: "upsert"}, want: "mutation.upsert"},
		{meta: OpMeta{Name: "fetch"}, want: "fetch"},
	}
	for _, tc := range tests {
		if got := tc.meta.SpanName(); got != tc.want {
			t.Errorf("SpanName() = %q, want %q", got, tc.want)
		}
	}
}

func TestOpMeta_Validate(t *testing.T) {
	if err := (OpMeta{}).Validate(); !errors.Is(err, ErrMissingOpName) {
		t.Errorf("expected ErrMissingOpName, got %v", err)
	}
	if err := (OpMeta{Name: "upsert"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTracer_SuccessSpan(t *testing.T) {
	rec, tracer := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), OpMeta{Component: "mutation", Name: "upsert", Table: "ideas"})
	tracer.EndSpan(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "mutation.upsert" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
	found := false
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key("op.table") && kv.Value.AsString() == "ideas" {
			found = true
		}
	}
	if !found {
		t.Error("expected op.table attribute")
	}
}

func TestTracer_ErrorSpan(t *testing.T) {
	rec, tracer := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), OpMeta{Name: "upsert"})
	tracer.EndSpan(span, outcomeError("forbidden"))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	var outcome string
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key("op.outcome") {
			outcome = kv.Value.AsString()
		}
	}
	if outcome != "forbidden" {
		t.Errorf("op.outcome = %q, want forbidden", outcome)
	}
	if len(s.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestNoopTracer_NoPanic(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.StartSpan(context.Background(), OpMeta{Name: "noop"})
	tracer.EndSpan(span, errors.New("x"))
}
