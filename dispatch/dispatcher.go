// Package dispatch routes each event in a closed batch to the parsing
// collaborator matching its category and collects the produced domain
// entities. Failure blast radii are kept apart: a parse failure skips one
// event, an unexpected category aborts the batch, and neither leaks into
// other batches.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fynarfin/ph-ee-importer-rdbms/record"
	"github.com/fynarfin/ph-ee-importer-rdbms/tenant"
	"github.com/fynarfin/ph-ee-importer-rdbms/window"
)

// ErrUnexpectedCategory aborts a batch whose discriminant falls outside the
// known category set.
var ErrUnexpectedCategory = errors.New("dispatch: unexpected event category")

// Result is the outcome of dispatching one batch.
type Result struct {
	Entities []Entity
	// Skipped counts events dropped by per-event parse failures.
	Skipped int
}

// Options toggle optional dispatcher behavior.
type Options struct {
	// DumpTimestamps emits a TimestampRecord per event for arrival
	// bookkeeping.
	DumpTimestamps bool

	// Now stamps the import time on dumped timestamps.
	Now func() time.Time
}

// Dispatcher walks a batch in order and hands each event to its parsing
// collaborator.
type Dispatcher struct {
	parser Parser
	opts   Options
	log    *slog.Logger
}

func NewDispatcher(parser Parser, opts Options, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{parser: parser, opts: opts, log: log}
}

// Dispatch processes every event of the batch in arrival order under the
// batch's resolved tenant scope. Per-event parse failures are logged with
// the offending record and skipped. A variable event hands the entire
// remaining batch to the variable parser and ends processing: nothing is
// left to dispatch once the parser consumed the rest.
//
// The returned error aborts the batch; nothing collected so far may be
// persisted.
func (d *Dispatcher) Dispatch(_ context.Context, tc tenant.Context, batch window.Batch, sample record.Document) (Result, error) {
	instanceKey, err := sample.Int("value.processInstanceKey")
	if err != nil {
		return Result{}, fmt.Errorf("batch sample: %w", err)
	}

	meta := BatchMeta{
		FlowID:              tc.FlowID,
		FlowType:            tc.FlowType,
		WorkflowInstanceKey: instanceKey,
		Sample:              sample,
	}
	category := batch.Key.Category()
	log := d.log.With("key", batch.Key.String(), "tenant", tc.Tenant)

	var res Result
	for i, ev := range batch.Events {
		entities, last, err := d.dispatchEvent(meta, category, batch.Events, i)
		if err != nil {
			if errors.Is(err, ErrUnexpectedCategory) {
				return Result{}, err
			}
			log.Error("failed to parse record, skipping",
				"offset", ev.Offset, "record", string(ev.Value), "error", err)
			res.Skipped++
			continue
		}
		res.Entities = append(res.Entities, entities...)
		if last {
			break
		}
	}
	return res, nil
}

// dispatchEvent handles one event; last reports that the batch's remaining
// events were consumed along with it.
func (d *Dispatcher) dispatchEvent(meta BatchMeta, category record.Category, events []record.RawEvent, i int) (entities []Entity, last bool, err error) {
	doc, err := record.Parse(events[i].Value)
	if err != nil {
		return nil, false, err
	}

	timestamp, err := doc.Int("timestamp")
	if err != nil {
		return nil, false, err
	}

	// Not every category carries these; absent fields stay zero-valued.
	workflowKeyField, _ := doc.Lookup("value.processDefinitionKey")
	workflowKey := workflowKeyField.Int()
	elementTypeField, _ := doc.Lookup("value.bpmnElementType")
	elementType := elementTypeField.String()
	elementIDField, _ := doc.Lookup("value.elementId")
	elementID := elementIDField.String()

	if d.opts.DumpTimestamps {
		if ts, ok := d.timestampRecord(doc); ok {
			entities = append(entities, ts)
		}
	}

	switch category {
	case record.CategoryDeployment, record.CategoryVariableDocument, record.CategoryWorkflowInstance:
		// No persistence effect for these lifecycle markers.

	case record.CategoryProcessInstance:
		parsed, err := d.parser.ParseInstance(doc, InstanceInput{
			BatchMeta:   meta,
			Timestamp:   timestamp,
			ElementType: elementType,
			ElementID:   elementID,
		})
		if err != nil {
			return nil, false, err
		}
		entities = append(entities, parsed...)

	case record.CategoryJob:
		parsed, err := d.parser.ParseTask(doc, TaskInput{
			BatchMeta:   meta,
			WorkflowKey: workflowKey,
			Timestamp:   timestamp,
			RecordType:  record.CategoryJob.String(),
		})
		if err != nil {
			return nil, false, err
		}
		entities = append(entities, parsed...)

	case record.CategoryVariable:
		docs := d.parseRemaining(events[i:])
		parsed, err := d.parser.ParseVariables(docs, VariableInput{
			BatchMeta:   meta,
			WorkflowKey: workflowKey,
		})
		if err != nil {
			return nil, false, err
		}
		entities = append(entities, parsed...)
		last = true

	case record.CategoryIncident:
		parsed, err := d.parser.ParseIncident(doc, IncidentInput{
			BatchMeta: meta,
			Timestamp: timestamp,
		})
		if err != nil {
			return nil, false, err
		}
		entities = append(entities, parsed...)

	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnexpectedCategory, events[i].Value)
	}

	return entities, last, nil
}

// parseRemaining parses the rest of the batch for the variable parser,
// leaving out events whose payload cannot be read.
func (d *Dispatcher) parseRemaining(events []record.RawEvent) []record.Document {
	docs := make([]record.Document, 0, len(events))
	for _, ev := range events {
		doc, err := record.Parse(ev.Value)
		if err != nil {
			d.log.Error("skipping unreadable record in variable batch",
				"offset", ev.Offset, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

func (d *Dispatcher) timestampRecord(doc record.Document) (TimestampRecord, bool) {
	instanceKey, err := doc.Int("value.processInstanceKey")
	if err != nil {
		d.log.Debug("cannot dump event timestamps", "error", err)
		return TimestampRecord{}, false
	}
	exported, err := doc.String("exportedTime")
	if err != nil {
		d.log.Debug("cannot dump event timestamps", "error", err)
		return TimestampRecord{}, false
	}
	engineTime, err := doc.Int("timestamp")
	if err != nil {
		d.log.Debug("cannot dump event timestamps", "error", err)
		return TimestampRecord{}, false
	}
	return TimestampRecord{
		WorkflowInstanceKey: instanceKey,
		ExportedTime:        exported,
		ImportedTime:        d.opts.Now().UTC().Format("2006-01-02T15:04:05.000Z0700"),
		EngineTime:          fmt.Sprintf("%d", engineTime),
	}, true
}
