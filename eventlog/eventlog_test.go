package eventlog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fynarfin/ph-ee-importer-rdbms/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLog(t *testing.T, dir string) *eventlog.Log {
	t.Helper()
	opts := eventlog.DefaultOptions()
	opts.Partitions = 2
	l, err := eventlog.Open(dir, opts)
	require.NoError(t, err)
	return l
}

func TestLogAppendFetch(t *testing.T) {
	l := openLog(t, filepath.Join(t.TempDir(), "log"))
	defer l.Close()
	ctx := context.Background()

	p1, o1, err := l.Append(ctx, "instance-1", []byte(`{"a":1}`))
	require.NoError(t, err)
	p2, o2, err := l.Append(ctx, "instance-1", []byte(`{"a":2}`))
	require.NoError(t, err)

	// Same key stays on one partition, offsets are contiguous.
	assert.Equal(t, p1, p2)
	assert.Equal(t, o1+1, o2)

	events, err := l.Fetch(ctx, p1, o1, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "instance-1", events[0].Key)
	assert.Equal(t, []byte(`{"a":1}`), events[0].Value)
	assert.Equal(t, o1, events[0].Offset)

	// Fetch from a later offset skips earlier records.
	events, err = l.Fetch(ctx, p1, o2, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, o2, events[0].Offset)
}

func TestLogPartitions(t *testing.T) {
	l := openLog(t, filepath.Join(t.TempDir(), "log"))
	defer l.Close()

	parts, err := l.Partitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1}, parts)
}

func TestLogCommittedOffsets(t *testing.T) {
	l := openLog(t, filepath.Join(t.TempDir(), "log"))
	defer l.Close()
	ctx := context.Background()

	offset, err := l.CommittedOffset(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, offset)

	require.NoError(t, l.CommitOffset(ctx, 0, 42))
	offset, err = l.CommittedOffset(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), offset)
}

func TestLogRecoversOffsetsAfterReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	ctx := context.Background()

	l := openLog(t, dir)
	p, o1, err := l.Append(ctx, "instance-9", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l = openLog(t, dir)
	defer l.Close()

	p2, o2, err := l.Append(ctx, "instance-9", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, p, p2)
	assert.Equal(t, o1+1, o2)
}
