// Package observability provides the importer's structured logging and
// metrics. Logging is slog; metrics are OpenTelemetry counters with a no-op
// fallback so the pipeline runs unchanged when no meter provider is wired.
package observability

import (
	"io"
	"log/slog"
)

// NewLogger builds a JSON slog logger writing to w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// PartitionLogger scopes a logger to one partition worker.
func PartitionLogger(log *slog.Logger, topic string, partition int32) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log.With(
		slog.String("topic", topic),
		slog.Int("partition", int(partition)),
	)
}
