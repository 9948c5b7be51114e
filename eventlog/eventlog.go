// Package eventlog implements a durable partitioned append log on Pebble.
// Records are string-keyed, string-valued and totally ordered per partition
// by their assigned offset. Consumers read from an offset and acknowledge
// progress with a committed offset per partition, giving at-least-once
// redelivery across restarts.
package eventlog

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/fynarfin/ph-ee-importer-rdbms/record"
)

const (
	tagRecord byte = 'r'
	tagOffset byte = 'o'
)

// Options configures a Log.
type Options struct {
	// Partitions is the fixed partition count. Records are assigned by
	// hashing their key, so all events of one process instance land on
	// one partition.
	Partitions int

	// Topic names the log in fetched records.
	Topic string

	// CacheSize and MaxOpenFiles are passed through to Pebble.
	CacheSize    int64
	MaxOpenFiles int
}

// DefaultOptions returns the default log configuration.
func DefaultOptions() Options {
	return Options{
		Partitions:   4,
		Topic:        "workflow-events",
		CacheSize:    8 << 20,
		MaxOpenFiles: 256,
	}
}

// Log is a partitioned append log backed by a Pebble database.
type Log struct {
	db    *pebble.DB
	topic string
	parts int32

	mu   sync.Mutex
	next map[int32]int64
}

type storedRecord struct {
	Key   string
	Value []byte
}

// Open opens (creating if needed) a log at path.
func Open(path string, opts Options) (*Log, error) {
	if opts.Partitions <= 0 {
		return nil, errors.New("eventlog: partitions must be greater than 0")
	}

	pebbleOpts := &pebble.Options{
		Cache:        pebble.NewCache(opts.CacheSize),
		MaxOpenFiles: opts.MaxOpenFiles,
	}
	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open pebble: %w", err)
	}

	l := &Log{
		db:    db,
		topic: opts.Topic,
		parts: int32(opts.Partitions),
		next:  make(map[int32]int64),
	}
	if err := l.recoverOffsets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// recoverOffsets seeks the last record of each partition to restore the next
// append offset after a restart.
func (l *Log) recoverOffsets() error {
	for p := int32(0); p < l.parts; p++ {
		iter, err := l.db.NewIter(&pebble.IterOptions{
			LowerBound: recordKey(p, 0),
			UpperBound: recordKey(p+1, 0),
		})
		if err != nil {
			return fmt.Errorf("eventlog: iterate partition %d: %w", p, err)
		}
		if iter.Last() {
			_, offset := splitRecordKey(iter.Key())
			l.next[p] = offset + 1
		}
		if err := iter.Close(); err != nil {
			return fmt.Errorf("eventlog: close iterator: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Partitions lists the partition identifiers of the log.
func (l *Log) Partitions(_ context.Context) ([]int32, error) {
	out := make([]int32, l.parts)
	for i := range out {
		out[i] = int32(i)
	}
	return out, nil
}

// Append writes one record, assigning it the next offset on the partition
// owning its key.
func (l *Log) Append(_ context.Context, key string, value []byte) (partition int32, offset int64, err error) {
	partition = l.partitionFor(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	offset = l.next[partition]
	data, err := encodeRecord(storedRecord{Key: key, Value: value})
	if err != nil {
		return 0, 0, err
	}
	if err := l.db.Set(recordKey(partition, offset), data, pebble.Sync); err != nil {
		return 0, 0, fmt.Errorf("eventlog: append to partition %d: %w", partition, err)
	}
	l.next[partition] = offset + 1
	return partition, offset, nil
}

// Fetch reads up to max records from a partition starting at offset from.
func (l *Log) Fetch(_ context.Context, partition int32, from int64, max int) ([]record.RawEvent, error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: recordKey(partition, from),
		UpperBound: recordKey(partition+1, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("eventlog: iterate partition %d: %w", partition, err)
	}
	defer iter.Close()

	var out []record.RawEvent
	for valid := iter.First(); valid && len(out) < max; valid = iter.Next() {
		stored, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, err
		}
		_, offset := splitRecordKey(iter.Key())
		out = append(out, record.RawEvent{
			Topic:     l.topic,
			Partition: partition,
			Offset:    offset,
			Key:       stored.Key,
			Value:     stored.Value,
		})
	}
	return out, nil
}

// CommitOffset records the next offset a consumer of the partition should
// read after a restart.
func (l *Log) CommitOffset(_ context.Context, partition int32, offset int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(offset))
	if err := l.db.Set(offsetKey(partition), buf[:], pebble.Sync); err != nil {
		return fmt.Errorf("eventlog: commit offset for partition %d: %w", partition, err)
	}
	return nil
}

// CommittedOffset returns the last committed consumer offset for the
// partition, or 0 when none was committed yet.
func (l *Log) CommittedOffset(_ context.Context, partition int32) (int64, error) {
	value, closer, err := l.db.Get(offsetKey(partition))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("eventlog: read offset for partition %d: %w", partition, err)
	}
	defer closer.Close()
	return int64(binary.BigEndian.Uint64(value)), nil
}

func (l *Log) partitionFor(key string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int32(h.Sum32() % uint32(l.parts))
}

func recordKey(partition int32, offset int64) []byte {
	key := make([]byte, 13)
	key[0] = tagRecord
	binary.BigEndian.PutUint32(key[1:5], uint32(partition))
	binary.BigEndian.PutUint64(key[5:], uint64(offset))
	return key
}

func splitRecordKey(key []byte) (partition int32, offset int64) {
	partition = int32(binary.BigEndian.Uint32(key[1:5]))
	offset = int64(binary.BigEndian.Uint64(key[5:]))
	return partition, offset
}

func offsetKey(partition int32) []byte {
	key := make([]byte, 5)
	key[0] = tagOffset
	binary.BigEndian.PutUint32(key[1:], uint32(partition))
	return key
}

func encodeRecord(r storedRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("eventlog: encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (storedRecord, error) {
	var r storedRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return storedRecord{}, fmt.Errorf("eventlog: decode record: %w", err)
	}
	return r, nil
}
