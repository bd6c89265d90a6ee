package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/meetsmatch/swipeclient/internal/interfaces"
)

// InstrumentedStore wraps a DecisionStore with a span and metrics per call
type InstrumentedStore struct {
	next   interfaces.DecisionStore
	system string
	tracer trace.Tracer

	opTotal    metric.Int64Counter
	opDuration metric.Float64Histogram
}

// InstrumentStore wraps next on the global providers. system names the
// backing store (redis, postgres, memory).
func InstrumentStore(next interfaces.DecisionStore, system string) (*InstrumentedStore, error) {
	return InstrumentStoreWithProvider(next, system, otel.GetMeterProvider())
}

// InstrumentStoreWithProvider wraps next, creating instruments on provider
func InstrumentStoreWithProvider(next interfaces.DecisionStore, system string, provider metric.MeterProvider) (*InstrumentedStore, error) {
	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	opTotal, err := meter.Int64Counter(
		"decision_store_operations_total",
		metric.WithDescription("Total number of decision store operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision_store_operations_total counter: %w", err)
	}

	opDuration, err := meter.Float64Histogram(
		"decision_store_operation_duration_seconds",
		metric.WithDescription("Decision store operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision_store_operation_duration_seconds histogram: %w", err)
	}

	return &InstrumentedStore{
		next:       next,
		system:     system,
		tracer:     otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion)),
		opTotal:    opTotal,
		opDuration: opDuration,
	}, nil
}

func (s *InstrumentedStore) LoadIDs(ctx context.Context, key string) ([]string, error) {
	var ids []string
	err := s.observe(ctx, "load_ids", func(ctx context.Context) error {
		var err error
		ids, err = s.next.LoadIDs(ctx, key)
		return err
	})
	return ids, err
}

func (s *InstrumentedStore) SaveIDs(ctx context.Context, key string, ids []string) error {
	return s.observe(ctx, "save_ids", func(ctx context.Context) error {
		return s.next.SaveIDs(ctx, key, ids)
	}, attribute.Int("store.ids", len(ids)))
}

func (s *InstrumentedStore) Delete(ctx context.Context, keys ...string) error {
	return s.observe(ctx, "delete", func(ctx context.Context) error {
		return s.next.Delete(ctx, keys...)
	}, attribute.Int("store.keys", len(keys)))
}

func (s *InstrumentedStore) observe(ctx context.Context, operation string, fn func(context.Context) error, extra ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "decision_store."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("store.system", s.system),
			attribute.String("store.operation", operation),
		}, extra...)...),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	attributes := []attribute.KeyValue{
		attribute.String("store.system", s.system),
		attribute.String("store.operation", operation),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		attributes = append(attributes, attribute.String("error", "true"))
	} else {
		attributes = append(attributes, attribute.String("error", "false"))
	}

	s.opTotal.Add(ctx, 1, metric.WithAttributes(attributes...))
	s.opDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attributes...))
	return err
}
