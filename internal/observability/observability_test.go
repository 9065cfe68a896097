package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "atelier-test", Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "unit", attribute.String("k", "v"))
	assert.NotNil(t, ctx)
	span.AddAttributes(attribute.Int("n", 1))
	span.SetError(errors.New("boom"))
	span.SetError(nil)
	span.End()
}

func TestInitTracing_StdoutExporter(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "atelier-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	span, _ := NewSpan(context.Background(), "sampled")
	assert.Len(t, span.TraceID(), 32)
	span.End()
}

func TestTrackQuery(t *testing.T) {
	before := testutil.CollectAndCount(DatabaseQueryLatency)
	TrackQuery("unit_test", "posts")()
	assert.GreaterOrEqual(t, testutil.CollectAndCount(DatabaseQueryLatency), before)
}

func TestDomainCounters(t *testing.T) {
	ModerationDecisions.WithLabelValues("approve", "applied").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ModerationDecisions.WithLabelValues("approve", "applied")), 1.0)

	PaymentConfirmations.WithLabelValues("duplicate").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(PaymentConfirmations.WithLabelValues("duplicate")), 1.0)
}
