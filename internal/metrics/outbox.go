package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutboxMetrics records outbox processor activity: delivered and failed
// entries, requeued retries, cleanup deletions and poll cycle duration.
type OutboxMetrics interface {
	RecordProcessed(ctx context.Context, eventType string)
	RecordFailed(ctx context.Context, eventType string)
	RecordRequeued(ctx context.Context, count int64)
	RecordCleanedUp(ctx context.Context, count int64)
	RecordBatchDuration(ctx context.Context, duration time.Duration)
}

// outboxMetrics implements OutboxMetrics using OpenTelemetry metrics.
type outboxMetrics struct {
	processedCounter metric.Int64Counter
	failedCounter    metric.Int64Counter
	requeuedCounter  metric.Int64Counter
	cleanedUpCounter metric.Int64Counter
	batchHisto       metric.Float64Histogram
}

// NewOutboxMetrics creates an OutboxMetrics implementation using the provided meter provider.
func NewOutboxMetrics(meterProvider metric.MeterProvider, namespace string) (OutboxMetrics, error) {
	meter := meterProvider.Meter(namespace)

	processedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_processed_total", namespace),
		metric.WithDescription("Total number of outbox entries delivered to the event bus"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}

	failedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_failed_total", namespace),
		metric.WithDescription("Total number of outbox entries that failed to publish"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed counter: %w", err)
	}

	requeuedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_requeued_total", namespace),
		metric.WithDescription("Total number of failed outbox entries requeued for retry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requeued counter: %w", err)
	}

	cleanedUpCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_cleaned_up_total", namespace),
		metric.WithDescription("Total number of processed outbox entries deleted by retention cleanup"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cleaned up counter: %w", err)
	}

	batchHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_outbox_batch_duration_seconds", namespace),
		metric.WithDescription("Duration of outbox poll cycles in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch duration histogram: %w", err)
	}

	return &outboxMetrics{
		processedCounter: processedCounter,
		failedCounter:    failedCounter,
		requeuedCounter:  requeuedCounter,
		cleanedUpCounter: cleanedUpCounter,
		batchHisto:       batchHisto,
	}, nil
}

func (o *outboxMetrics) RecordProcessed(ctx context.Context, eventType string) {
	o.processedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event_type", eventType)),
	)
}

func (o *outboxMetrics) RecordFailed(ctx context.Context, eventType string) {
	o.failedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event_type", eventType)),
	)
}

func (o *outboxMetrics) RecordRequeued(ctx context.Context, count int64) {
	o.requeuedCounter.Add(ctx, count)
}

func (o *outboxMetrics) RecordCleanedUp(ctx context.Context, count int64) {
	o.cleanedUpCounter.Add(ctx, count)
}

func (o *outboxMetrics) RecordBatchDuration(ctx context.Context, duration time.Duration) {
	o.batchHisto.Record(ctx, duration.Seconds())
}

// NoOpOutboxMetrics is a no-op implementation of OutboxMetrics for when metrics are disabled.
type NoOpOutboxMetrics struct{}

// NewNoOpOutboxMetrics creates a no-op OutboxMetrics implementation.
func NewNoOpOutboxMetrics() OutboxMetrics {
	return &NoOpOutboxMetrics{}
}

func (n *NoOpOutboxMetrics) RecordProcessed(ctx context.Context, eventType string) {}

func (n *NoOpOutboxMetrics) RecordFailed(ctx context.Context, eventType string) {}

func (n *NoOpOutboxMetrics) RecordRequeued(ctx context.Context, count int64) {}

func (n *NoOpOutboxMetrics) RecordCleanedUp(ctx context.Context, count int64) {}

func (n *NoOpOutboxMetrics) RecordBatchDuration(ctx context.Context, duration time.Duration) {}
