// Package window groups filtered events into short fixed-width batches keyed
// by (process instance, event category). A window admits events from its
// start boundary until its end plus a grace period, then emits the
// accumulated batch exactly once and discards its state.
package window

import (
	"time"

	"github.com/fynarfin/ph-ee-importer-rdbms/record"
)

// Phase describes where a window is in its lifecycle.
type Phase int

const (
	// PhaseOpen means the window end has not been reached.
	PhaseOpen Phase = iota
	// PhaseClosing means the end boundary passed and the grace timer is
	// running; late arrivals are still admitted.
	PhaseClosing
	// PhaseEmitted means the batch was delivered and the state discarded.
	// Further arrivals for the key start a new window.
	PhaseEmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseClosing:
		return "closing"
	default:
		return "emitted"
	}
}

// Batch is the ordered set of events for one key and one window, delivered
// downstream when the window closes. Order is arrival order.
type Batch struct {
	Key    record.GroupingKey
	Start  time.Time
	Events []record.RawEvent
}

// First returns the batch's first event. Batches are never emitted empty.
func (b Batch) First() record.RawEvent {
	return b.Events[0]
}
