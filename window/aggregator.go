package window

import (
	"time"

	"github.com/google/btree"

	"github.com/fynarfin/ph-ee-importer-rdbms/record"
)

const (
	// DefaultWidth and DefaultGrace match the importer's aggregation
	// window: events for a key are collected for 300ms, with a 100ms
	// grace period for late arrivals.
	DefaultWidth = 300 * time.Millisecond
	DefaultGrace = 100 * time.Millisecond
)

type windowID struct {
	key   record.GroupingKey
	start int64
}

type state struct {
	id          windowID
	start       time.Time
	deadline    time.Time
	events      []record.RawEvent
	firstOffset int64
}

type deadlineEntry struct {
	at time.Time
	id windowID
}

func deadlineLess(a, b deadlineEntry) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	if a.id.key != b.id.key {
		if a.id.key.InstanceID != b.id.key.InstanceID {
			return a.id.key.InstanceID < b.id.key.InstanceID
		}
		return a.id.key.Kind < b.id.key.Kind
	}
	return a.id.start < b.id.start
}

// Aggregator buffers events into per-key windows and emits each window's
// batch once its end plus grace has elapsed. Emission is cooperative: it only
// happens inside Flush, so a batch is never delivered early and the caller
// controls when closed windows drain.
//
// An Aggregator is not safe for concurrent use. Each partition worker owns
// one instance; within a partition, events and batches are strictly ordered.
type Aggregator struct {
	width time.Duration
	grace time.Duration

	open      map[windowID]*state
	deadlines *btree.BTreeG[deadlineEntry]
}

// NewAggregator creates an aggregator with the given window width and grace
// period. Non-positive values fall back to the defaults.
func NewAggregator(width, grace time.Duration) *Aggregator {
	if width <= 0 {
		width = DefaultWidth
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Aggregator{
		width:     width,
		grace:     grace,
		open:      make(map[windowID]*state),
		deadlines: btree.NewG(2, deadlineLess),
	}
}

// Append admits one event into the window owning its arrival time. A fresh
// window is created when none is open for the (key, window-start) pair;
// arrivals after a window emitted start a new state instance rather than
// reopening the old one.
func (a *Aggregator) Append(key record.GroupingKey, ev record.RawEvent) {
	start := ev.Arrived.Truncate(a.width)
	id := windowID{key: key, start: start.UnixNano()}

	st, ok := a.open[id]
	if !ok {
		st = &state{
			id:          id,
			start:       start,
			deadline:    start.Add(a.width).Add(a.grace),
			firstOffset: ev.Offset,
		}
		a.open[id] = st
		a.deadlines.ReplaceOrInsert(deadlineEntry{at: st.deadline, id: id})
	}
	if ev.Offset < st.firstOffset {
		st.firstOffset = ev.Offset
	}
	st.events = append(st.events, ev)
}

// Phase reports the lifecycle phase of the window for key at the given
// arrival time. PhaseEmitted covers both emitted and never-opened windows:
// in either case the next arrival starts fresh state.
func (a *Aggregator) Phase(key record.GroupingKey, arrived, now time.Time) Phase {
	id := windowID{key: key, start: arrived.Truncate(a.width).UnixNano()}
	st, ok := a.open[id]
	if !ok {
		return PhaseEmitted
	}
	if now.Before(st.start.Add(a.width)) {
		return PhaseOpen
	}
	return PhaseClosing
}

// Flush emits every window whose end plus grace has elapsed at now, in
// deadline order, and drops their state. Windows are only ever emitted here,
// exactly once each, and only non-empty (state exists only once an event was
// admitted).
func (a *Aggregator) Flush(now time.Time) []Batch {
	var out []Batch
	for {
		entry, ok := a.deadlines.Min()
		if !ok || entry.at.After(now) {
			break
		}
		a.deadlines.DeleteMin()

		st := a.open[entry.id]
		delete(a.open, entry.id)

		out = append(out, Batch{
			Key:    st.id.key,
			Start:  st.start,
			Events: st.events,
		})
	}
	return out
}

// Pending returns the number of windows still holding events.
func (a *Aggregator) Pending() int {
	return len(a.open)
}

// NextDeadline returns the earliest emission deadline among open windows.
func (a *Aggregator) NextDeadline() (time.Time, bool) {
	entry, ok := a.deadlines.Min()
	if !ok {
		return time.Time{}, false
	}
	return entry.at, true
}

// LowWatermark returns the smallest source offset held by any open window.
// Offsets below it are safe to acknowledge upstream; everything at or above
// it must be redelivered if the process restarts.
func (a *Aggregator) LowWatermark() (int64, bool) {
	if len(a.open) == 0 {
		return 0, false
	}
	var min int64
	first := true
	for _, st := range a.open {
		if first || st.firstOffset < min {
			min = st.firstOffset
			first = false
		}
	}
	return min, true
}
