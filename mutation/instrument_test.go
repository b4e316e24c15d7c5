package mutation

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/embld/contentcore/observe"
	"github.com/embld/contentcore/store"
	"github.com/embld/contentcore/store/mocks"
)

func TestCoordinator_Instrumentation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp.Meter("test"), "mutation")
	require.NoError(t, err)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	var logs bytes.Buffer
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().Query(gomock.Any(), gomock.Any()).Return([]store.Row{{"id": "i1", "user_id": "alice"}}, nil)

	c, err := NewCoordinator(Config{
		Store:   st,
		Logger:  observe.NewLoggerWithWriter("info", &logs),
		Tracer:  observe.NewTracer(tp.Tracer("test")),
		Metrics: metrics,
	})
	require.NoError(t, err)

	_, err = c.Upsert(context.Background(), bob, Request{
		Schema:     ideaSchema(),
		ResourceID: "i1",
		Payload:    map[string]any{"title": "x"},
	})
	require.ErrorIs(t, err, ErrForbidden)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mutation.total" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				table, _ := dp.Attributes.Value(attribute.Key("table"))
				if outcome.AsString() == "forbidden" && table.AsString() == "ideas" && dp.Value == 1 {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected mutation.total{outcome=forbidden,table=ideas} = 1")

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "mutation.update", ended[0].Name())

	out := logs.String()
	assert.Contains(t, out, "mutation rejected")
	assert.True(t, strings.Contains(out, `"kind":"forbidden"`), out)
}
