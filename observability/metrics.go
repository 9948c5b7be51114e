package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Batch outcome labels.
const (
	BatchCommitted = "committed"
	BatchSkipped   = "skipped"
	BatchDropped   = "dropped"
	BatchAborted   = "aborted"
)

// Metrics records pipeline counters. Use NewMetrics for OTel-backed
// recording or Noop when metrics are disabled.
type Metrics interface {
	// RecordDrop counts one event dropped before grouping.
	RecordDrop(ctx context.Context, reason string)

	// RecordBatch counts one finished batch by outcome, with its size.
	RecordBatch(ctx context.Context, outcome string, events int)

	// RecordEntities counts entities persisted in one committed batch.
	RecordEntities(ctx context.Context, count int)
}

// Noop discards all metrics.
type Noop struct{}

func (Noop) RecordDrop(context.Context, string)       {}
func (Noop) RecordBatch(context.Context, string, int) {}
func (Noop) RecordEntities(context.Context, int)      {}

type otelMetrics struct {
	eventsDropped   metric.Int64Counter
	batches         metric.Int64Counter
	batchEvents     metric.Int64Histogram
	entitiesWritten metric.Int64Counter
}

// NewMetrics creates OTel-backed pipeline metrics.
func NewMetrics() (Metrics, error) {
	meter := otel.Meter("ph-ee-importer-rdbms")

	eventsDropped, err := meter.Int64Counter("importer.events.dropped",
		metric.WithDescription("Events dropped before grouping"),
	)
	if err != nil {
		return nil, err
	}
	batches, err := meter.Int64Counter("importer.batches",
		metric.WithDescription("Finished batches by outcome"),
	)
	if err != nil {
		return nil, err
	}
	batchEvents, err := meter.Int64Histogram("importer.batch.events",
		metric.WithDescription("Events per finished batch"),
	)
	if err != nil {
		return nil, err
	}
	entitiesWritten, err := meter.Int64Counter("importer.entities.written",
		metric.WithDescription("Entities persisted by committed batches"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		eventsDropped:   eventsDropped,
		batches:         batches,
		batchEvents:     batchEvents,
		entitiesWritten: entitiesWritten,
	}, nil
}

func (m *otelMetrics) RecordDrop(ctx context.Context, reason string) {
	m.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *otelMetrics) RecordBatch(ctx context.Context, outcome string, events int) {
	m.batches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.batchEvents.Record(ctx, int64(events), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *otelMetrics) RecordEntities(ctx context.Context, count int) {
	m.entitiesWritten.Add(ctx, int64(count))
}
