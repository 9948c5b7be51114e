package config_test

import (
	"testing"
	"time"

	"github.com/fynarfin/ph-ee-importer-rdbms/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "workflow-events", cfg.Topic)
	assert.Equal(t, 300*time.Millisecond, cfg.WindowWidth)
	assert.Equal(t, 100*time.Millisecond, cfg.Grace)
	assert.Equal(t, 500, cfg.FetchSize)
	assert.Equal(t, 4, cfg.Partitions)
	assert.False(t, cfg.DumpEventTimestamps)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IMPORTER_TOPIC", "zeebe-export")
	t.Setenv("IMPORTER_WINDOW_WIDTH", "1s")
	t.Setenv("IMPORTER_TENANTS", "tenantA,tenantB")
	t.Setenv("IMPORTER_EVENT_TIMESTAMPS_DUMP", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "zeebe-export", cfg.Topic)
	assert.Equal(t, time.Second, cfg.WindowWidth)
	assert.Equal(t, []string{"tenantA", "tenantB"}, cfg.Tenants)
	assert.True(t, cfg.DumpEventTimestamps)
}

func TestLoadRejectsBadFetchSize(t *testing.T) {
	t.Setenv("IMPORTER_FETCH_SIZE", "0")
	_, err := config.Load()
	assert.Error(t, err)
}
