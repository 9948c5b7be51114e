package flow_test

import (
	"testing"

	"github.com/fynarfin/ph-ee-importer-rdbms/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := flow.ParseConfig([]byte(`
flows:
  - id: orderFlow
    type: TRANSFER
  - id: payrollFlow
    type: BATCH
`))
	require.NoError(t, err)

	f, ok := cfg.Find("orderFlow")
	require.True(t, ok)
	assert.Equal(t, "TRANSFER", f.Type)

	_, ok = cfg.Find("unknownFlow")
	assert.False(t, ok)
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := flow.ParseConfig([]byte(`flows: [`))
	assert.Error(t, err)
}

func TestNewConfig(t *testing.T) {
	cfg := flow.NewConfig(flow.Flow{ID: "x", Type: "T"})
	f, ok := cfg.Find("x")
	require.True(t, ok)
	assert.Equal(t, "T", f.Type)
}
