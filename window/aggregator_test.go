package window_test

import (
	"testing"
	"time"

	"github.com/fynarfin/ph-ee-importer-rdbms/record"
	"github.com/fynarfin/ph-ee-importer-rdbms/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Truncate(300 * time.Millisecond)

func event(key string, offset int64, arrived time.Time) record.RawEvent {
	return record.RawEvent{Key: key, Offset: offset, Arrived: arrived, Value: []byte(`{}`)}
}

func TestAggregatorEmitsAfterGrace(t *testing.T) {
	agg := window.NewAggregator(300*time.Millisecond, 100*time.Millisecond)
	key := record.GroupingKey{InstanceID: "1", Kind: "JOB"}

	agg.Append(key, event("1", 0, base))
	agg.Append(key, event("1", 1, base.Add(50*time.Millisecond)))

	// End of window reached but grace still running: nothing emitted.
	assert.Empty(t, agg.Flush(base.Add(350*time.Millisecond)))
	assert.Equal(t, window.PhaseClosing, agg.Phase(key, base, base.Add(350*time.Millisecond)))

	// Late arrival during grace is still admitted.
	agg.Append(key, event("1", 2, base.Add(250*time.Millisecond)))

	batches := agg.Flush(base.Add(401 * time.Millisecond))
	require.Len(t, batches, 1)
	assert.Equal(t, key, batches[0].Key)
	require.Len(t, batches[0].Events, 3)

	// Arrival order, not offset or payload order.
	assert.Equal(t, int64(0), batches[0].Events[0].Offset)
	assert.Equal(t, int64(1), batches[0].Events[1].Offset)
	assert.Equal(t, int64(2), batches[0].Events[2].Offset)
}

func TestAggregatorNeverEmitsEarly(t *testing.T) {
	agg := window.NewAggregator(300*time.Millisecond, 100*time.Millisecond)
	key := record.GroupingKey{InstanceID: "1", Kind: "JOB"}

	agg.Append(key, event("1", 0, base))

	for _, offset := range []time.Duration{0, 100 * time.Millisecond, 399 * time.Millisecond} {
		assert.Empty(t, agg.Flush(base.Add(offset)), "flush at %v", offset)
	}
	assert.Len(t, agg.Flush(base.Add(400*time.Millisecond)), 1)
}

func TestAggregatorExactlyOncePerWindow(t *testing.T) {
	agg := window.NewAggregator(300*time.Millisecond, 100*time.Millisecond)
	key := record.GroupingKey{InstanceID: "1", Kind: "VARIABLE"}

	agg.Append(key, event("1", 0, base))
	assert.Len(t, agg.Flush(base.Add(time.Second)), 1)

	// Nothing left to emit for that window.
	assert.Empty(t, agg.Flush(base.Add(2*time.Second)))
	assert.Zero(t, agg.Pending())
}

func TestAggregatorNewWindowAfterEmission(t *testing.T) {
	agg := window.NewAggregator(300*time.Millisecond, 100*time.Millisecond)
	key := record.GroupingKey{InstanceID: "7", Kind: "JOB"}

	agg.Append(key, event("7", 0, base))
	require.Len(t, agg.Flush(base.Add(time.Second)), 1)

	later := base.Add(1200 * time.Millisecond)
	agg.Append(key, event("7", 10, later))
	assert.Equal(t, 1, agg.Pending())

	batches := agg.Flush(later.Add(time.Second))
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Events, 1)
	assert.Equal(t, int64(10), batches[0].Events[0].Offset)
}

func TestAggregatorKeysDoNotMix(t *testing.T) {
	agg := window.NewAggregator(300*time.Millisecond, 100*time.Millisecond)
	jobs := record.GroupingKey{InstanceID: "1", Kind: "JOB"}
	vars := record.GroupingKey{InstanceID: "1", Kind: "VARIABLE"}
	other := record.GroupingKey{InstanceID: "2", Kind: "JOB"}

	agg.Append(jobs, event("1", 0, base))
	agg.Append(vars, event("1", 1, base.Add(10*time.Millisecond)))
	agg.Append(other, event("2", 2, base.Add(20*time.Millisecond)))

	batches := agg.Flush(base.Add(time.Second))
	require.Len(t, batches, 3)
	for _, b := range batches {
		require.Len(t, b.Events, 1, "key %s", b.Key)
	}
}

func TestAggregatorLowWatermark(t *testing.T) {
	agg := window.NewAggregator(300*time.Millisecond, 100*time.Millisecond)

	_, ok := agg.LowWatermark()
	assert.False(t, ok)

	agg.Append(record.GroupingKey{InstanceID: "1", Kind: "JOB"}, event("1", 5, base))
	agg.Append(record.GroupingKey{InstanceID: "2", Kind: "JOB"}, event("2", 3, base.Add(10*time.Millisecond)))

	lw, ok := agg.LowWatermark()
	require.True(t, ok)
	assert.Equal(t, int64(3), lw)

	agg.Flush(base.Add(time.Second))
	_, ok = agg.LowWatermark()
	assert.False(t, ok)
}

func TestAggregatorNextDeadline(t *testing.T) {
	agg := window.NewAggregator(300*time.Millisecond, 100*time.Millisecond)

	_, ok := agg.NextDeadline()
	assert.False(t, ok)

	agg.Append(record.GroupingKey{InstanceID: "1", Kind: "JOB"}, event("1", 0, base))
	deadline, ok := agg.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, base.Add(400*time.Millisecond), deadline)
}
