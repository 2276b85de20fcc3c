package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestTracer(t *testing.T) {
	t.Helper()
	shutdown, err := InitTracer("registration-test", "")
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, shutdown(context.Background()))
	})
}

func TestStartSpan_ChildInheritsTrace(t *testing.T) {
	initTestTracer(t)

	ctx, root := StartSpan(context.Background(), "inventory", "ReserveInventory")
	defer root.End()
	require.True(t, root.SpanContext().IsValid())

	_, child := StartSpan(ctx, "inventory", "UpdateCounters")
	defer child.End()

	assert.Equal(t, root.SpanContext().TraceID(), child.SpanContext().TraceID())
	assert.NotEqual(t, root.SpanContext().SpanID(), child.SpanContext().SpanID())
}

func TestExtractIDs(t *testing.T) {
	initTestTracer(t)

	assert.Empty(t, ExtractTraceID(context.Background()))
	assert.Empty(t, ExtractSpanID(context.Background()))

	ctx, span := StartSpan(context.Background(), "payment", "ConfirmPayment")
	defer span.End()

	assert.Len(t, ExtractTraceID(ctx), 32)
	assert.Len(t, ExtractSpanID(ctx), 16)
}

func TestEndSpan(t *testing.T) {
	initTestTracer(t)

	_, span := StartSpan(context.Background(), "payment", "ConfirmPayment")
	EndSpan(span, errors.New("gateway unavailable"))
	assert.False(t, span.IsRecording())

	_, span = StartSpan(context.Background(), "payment", "ConfirmPayment")
	EndSpan(span, nil)
	assert.False(t, span.IsRecording())
}
