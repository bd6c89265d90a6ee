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
)

const (
	instrumentationName    = "github.com/meetsmatch/swipeclient/internal/monitoring"
	instrumentationVersion = "1.0.0"
)

// ClientInstrumentation provides OpenTelemetry instrumentation for the swipe client.
// A nil *ClientInstrumentation is valid and records nothing.
type ClientInstrumentation struct {
	tracer trace.Tracer
	meter  metric.Meter

	swipesTotal      metric.Int64Counter
	matchesTotal     metric.Int64Counter
	feedFetchesTotal metric.Int64Counter
	feedFiltered     metric.Int64Counter
	pollsTotal       metric.Int64Counter
	errorsTotal      metric.Int64Counter
	opDuration       metric.Float64Histogram
}

// NewClientInstrumentation creates instruments on the global meter provider
func NewClientInstrumentation() (*ClientInstrumentation, error) {
	return NewClientInstrumentationWithProvider(otel.GetMeterProvider())
}

// NewClientInstrumentationWithProvider creates instruments on the given provider
func NewClientInstrumentationWithProvider(provider metric.MeterProvider) (*ClientInstrumentation, error) {
	tracer := otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	swipesTotal, err := meter.Int64Counter(
		"swipe_decisions_total",
		metric.WithDescription("Total number of like/dislike decisions submitted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create swipe_decisions_total counter: %w", err)
	}

	matchesTotal, err := meter.Int64Counter(
		"swipe_matches_total",
		metric.WithDescription("Total number of likes that produced a match"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create swipe_matches_total counter: %w", err)
	}

	feedFetchesTotal, err := meter.Int64Counter(
		"feed_fetches_total",
		metric.WithDescription("Total number of candidate batch fetches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed_fetches_total counter: %w", err)
	}

	feedFiltered, err := meter.Int64Counter(
		"feed_candidates_filtered_total",
		metric.WithDescription("Candidates removed by the local decision filter"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed_candidates_filtered_total counter: %w", err)
	}

	pollsTotal, err := meter.Int64Counter(
		"thread_polls_total",
		metric.WithDescription("Total number of message thread polls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread_polls_total counter: %w", err)
	}

	errorsTotal, err := meter.Int64Counter(
		"client_errors_total",
		metric.WithDescription("Total number of failed client operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client_errors_total counter: %w", err)
	}

	opDuration, err := meter.Float64Histogram(
		"client_operation_duration_seconds",
		metric.WithDescription("Client operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client_operation_duration_seconds histogram: %w", err)
	}

	return &ClientInstrumentation{
		tracer:           tracer,
		meter:            meter,
		swipesTotal:      swipesTotal,
		matchesTotal:     matchesTotal,
		feedFetchesTotal: feedFetchesTotal,
		feedFiltered:     feedFiltered,
		pollsTotal:       pollsTotal,
		errorsTotal:      errorsTotal,
		opDuration:       opDuration,
	}, nil
}

// TraceOperation starts an internal span for a client operation
func (c *ClientInstrumentation) TraceOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if c == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	attrs = append(attrs, attribute.String("component", "swipe_client"))
	return c.tracer.Start(ctx, "swipe."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordDecision records a submitted decision and whether it matched
func (c *ClientInstrumentation) RecordDecision(ctx context.Context, outcome string, matched bool, duration time.Duration, err error) {
	if c == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("outcome", outcome),
		errorAttr(err),
	}
	if err != nil {
		c.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", outcome)))
	}
	c.swipesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	c.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("operation", outcome)))
	if matched {
		c.matchesTotal.Add(ctx, 1)
	}
}

// RecordFetch records a candidate batch fetch
func (c *ClientInstrumentation) RecordFetch(ctx context.Context, filtered int, duration time.Duration, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "fetch_candidates")))
	}
	c.feedFetchesTotal.Add(ctx, 1, metric.WithAttributes(errorAttr(err)))
	if filtered > 0 {
		c.feedFiltered.Add(ctx, int64(filtered))
	}
	c.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("operation", "fetch_candidates")))
}

// RecordPoll records one message thread poll
func (c *ClientInstrumentation) RecordPoll(ctx context.Context, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "poll_messages")))
	}
	c.pollsTotal.Add(ctx, 1, metric.WithAttributes(errorAttr(err)))
}

// RecordError records err on span and bumps the error counter
func (c *ClientInstrumentation) RecordError(ctx context.Context, err error, operation string, span trace.Span) {
	if c == nil || err == nil {
		return
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("error_type", fmt.Sprintf("%T", err)),
	))
}

func errorAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("error", "true")
	}
	return attribute.String("error", "false")
}
