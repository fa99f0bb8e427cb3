package trace

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(Options{})
	require.NoError(t, err)
	ctx, span := StartSpan(context.Background(), "cycle")
	span.End()
	_, _, ok := Fields(ctx)
	assert.False(t, ok)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(Options{Enabled: true, ServiceName: "aitrader-test", Writer: &buf})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "cycle", attribute.String("symbol", "BTCUSDT"))
	traceID, spanID, ok := Fields(ctx)
	assert.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	RecordError(span, errors.New("llm timeout"))
	span.End()

	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, `"Name":"cycle"`)
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "llm timeout")
}
