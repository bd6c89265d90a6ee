package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestClientInstrumentation_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	inst, err := NewClientInstrumentationWithProvider(provider)
	require.NoError(t, err)

	ctx := context.Background()
	inst.RecordDecision(ctx, "like", true, 10*time.Millisecond, nil)
	inst.RecordDecision(ctx, "dislike", false, 5*time.Millisecond, nil)
	inst.RecordDecision(ctx, "like", false, 5*time.Millisecond, errors.New("boom"))
	inst.RecordFetch(ctx, 3, time.Millisecond, nil)
	inst.RecordPoll(ctx, nil)
	inst.RecordPoll(ctx, errors.New("offline"))

	sums := collect(t, reader)
	assert.Equal(t, int64(3), sums["swipe_decisions_total"])
	assert.Equal(t, int64(1), sums["swipe_matches_total"])
	assert.Equal(t, int64(1), sums["feed_fetches_total"])
	assert.Equal(t, int64(3), sums["feed_candidates_filtered_total"])
	assert.Equal(t, int64(2), sums["thread_polls_total"])
	assert.Equal(t, int64(2), sums["client_errors_total"])
}

func TestClientInstrumentation_NilIsNoop(t *testing.T) {
	var inst *ClientInstrumentation
	ctx := context.Background()

	assert.NotPanics(t, func() {
		inst.RecordDecision(ctx, "like", true, time.Second, nil)
		inst.RecordFetch(ctx, 1, time.Second, nil)
		inst.RecordPoll(ctx, nil)
		inst.RecordError(ctx, errors.New("x"), "op", nil)
		_, span := inst.TraceOperation(ctx, "like")
		span.End()
	})
}
