package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitialize_Disabled(t *testing.T) {
	tp, err := Initialize(context.Background(), DefaultConfig("stock-service"))
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartAndEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "test", "stock.reserve")
	assert.NotEmpty(t, GetTraceID(ctx))
	EndSpan(span, errors.New("insufficient"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "stock.reserve", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)
}
