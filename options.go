package importer

import (
	"log/slog"
	"time"

	"github.com/fynarfin/ph-ee-importer-rdbms/observability"
	"github.com/fynarfin/ph-ee-importer-rdbms/window"
)

// options defines all configuration options for the pipeline.
type options struct {
	topic        string
	width        time.Duration
	grace        time.Duration
	pollInterval time.Duration
	fetchSize    int
	log          *slog.Logger
	metrics      observability.Metrics
	now          func() time.Time
}

// Option is a function that configures the pipeline options.
type Option func(*options)

// WithTopic sets the topic name used in partition-scoped logs.
func WithTopic(topic string) Option {
	return func(o *options) {
		o.topic = topic
	}
}

// WithWindow sets the aggregation window width and grace period.
func WithWindow(width, grace time.Duration) Option {
	return func(o *options) {
		o.width = width
		o.grace = grace
	}
}

// WithPollInterval sets how long a partition worker sleeps when the log has
// no new records.
func WithPollInterval(interval time.Duration) Option {
	return func(o *options) {
		o.pollInterval = interval
	}
}

// WithFetchSize bounds how many records one fetch may return.
func WithFetchSize(n int) Option {
	return func(o *options) {
		o.fetchSize = n
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMetrics sets the pipeline metrics recorder.
func WithMetrics(m observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the processing-time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		topic:        "workflow-events",
		width:        window.DefaultWidth,
		grace:        window.DefaultGrace,
		pollInterval: 50 * time.Millisecond,
		fetchSize:    500,
		log:          slog.Default(),
		metrics:      observability.Noop{},
		now:          time.Now,
	}
}
