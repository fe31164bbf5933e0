package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeInstallsTracerProvider(t *testing.T) {
	require.NoError(t, Initialize(TracingConfig{
		ServiceName:    "weft-test",
		ServiceVersion: "0.0.0",
		SamplingRate:   1.0,
	}))

	// With the provider installed, spans record; the default noop
	// provider would yield an invalid, non-recording span.
	_, span := Tracer("weft.test").Start(context.Background(), "test.operation")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	// Repeated initialization is a no-op rather than an error.
	require.NoError(t, Initialize(TracingConfig{ServiceName: "other"}))

	require.NoError(t, Shutdown(context.Background()))
}
