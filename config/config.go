// Package config loads importer configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the importer's runtime configuration.
type Config struct {
	// Topic is the export log consumed by the pipeline.
	Topic string `env:"IMPORTER_TOPIC" envDefault:"workflow-events"`

	// WindowWidth and Grace control event batching.
	WindowWidth time.Duration `env:"IMPORTER_WINDOW_WIDTH" envDefault:"300ms"`
	Grace       time.Duration `env:"IMPORTER_WINDOW_GRACE" envDefault:"100ms"`

	// PollInterval is how long a partition worker waits when the log has
	// no new records; emission deadlines are still honored in between.
	PollInterval time.Duration `env:"IMPORTER_POLL_INTERVAL" envDefault:"50ms"`

	// FetchSize bounds one fetch from a partition.
	FetchSize int `env:"IMPORTER_FETCH_SIZE" envDefault:"500"`

	// FlowFile is the YAML flow configuration path.
	FlowFile string `env:"IMPORTER_FLOW_FILE" envDefault:"flows.yaml"`

	// DataDir holds the tenant databases; LogDir holds the event log.
	DataDir string `env:"IMPORTER_DATA_DIR" envDefault:"data"`
	LogDir  string `env:"IMPORTER_LOG_DIR" envDefault:"data/eventlog"`

	// Partitions is the event log's partition count.
	Partitions int `env:"IMPORTER_PARTITIONS" envDefault:"4"`

	// Tenants is the set of tenants this importer serves.
	Tenants []string `env:"IMPORTER_TENANTS" envSeparator:","`

	// DumpEventTimestamps enables the per-record timestamps bookkeeping
	// table.
	DumpEventTimestamps bool `env:"IMPORTER_EVENT_TIMESTAMPS_DUMP" envDefault:"false"`

	// LogLevel is the slog level name (debug, info, warn, error).
	LogLevel string `env:"IMPORTER_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.FetchSize <= 0 {
		return Config{}, fmt.Errorf("fetch size must be greater than 0")
	}
	if cfg.Partitions <= 0 {
		return Config{}, fmt.Errorf("partitions must be greater than 0")
	}
	return cfg, nil
}
