package importer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fynarfin/ph-ee-importer-rdbms/commit"
	"github.com/fynarfin/ph-ee-importer-rdbms/dispatch"
	"github.com/fynarfin/ph-ee-importer-rdbms/observability"
	"github.com/fynarfin/ph-ee-importer-rdbms/record"
	"github.com/fynarfin/ph-ee-importer-rdbms/tenant"
	"github.com/fynarfin/ph-ee-importer-rdbms/window"
)

// Source is the upstream partitioned log of string-keyed, string-valued
// records.
type Source interface {
	// Partitions lists the partition identifiers this source serves.
	Partitions(ctx context.Context) ([]int32, error)
	// Fetch reads up to max records from a partition starting at offset
	// from. An empty result means the partition has no new records.
	Fetch(ctx context.Context, partition int32, from int64, max int) ([]record.RawEvent, error)
	// CommittedOffset returns the offset consumption should resume from.
	CommittedOffset(ctx context.Context, partition int32) (int64, error)
	// CommitOffset acknowledges that records below offset are fully
	// processed and need not be redelivered.
	CommitOffset(ctx context.Context, partition int32, offset int64) error
}

// Pipeline consumes the export log, groups events into windowed batches and
// processes each batch through tenant resolution, category dispatch and a
// transactional commit.
//
// Each partition is owned by one worker: batches within a partition run
// strictly sequentially, batches across partitions in parallel. Offsets are
// acknowledged only once no open window still holds them, so a restart
// redelivers anything unprocessed (at-least-once).
type Pipeline struct {
	source     Source
	resolver   *tenant.Resolver
	dispatcher *dispatch.Dispatcher
	committer  *commit.Committer
	opts       options
}

// New creates a pipeline over the given source and collaborators.
func New(source Source, resolver *tenant.Resolver, dispatcher *dispatch.Dispatcher, committer *commit.Committer, opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{
		source:     source,
		resolver:   resolver,
		dispatcher: dispatcher,
		committer:  committer,
		opts:       o,
	}
}

// Run consumes all partitions until ctx is cancelled. Batches already being
// processed finish their transaction before the worker exits; nothing is
// half-committed on shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	partitions, err := p.source.Partitions(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, len(partitions))
	for i, partition := range partitions {
		wg.Add(1)
		go func(i int, partition int32) {
			defer wg.Done()
			errs[i] = p.consumePartition(ctx, partition)
		}(i, partition)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (p *Pipeline) consumePartition(ctx context.Context, partition int32) error {
	log := observability.PartitionLogger(p.opts.log, p.opts.topic, partition)

	offset, err := p.source.CommittedOffset(ctx, partition)
	if err != nil {
		return err
	}
	log.Debug("starting partition worker", "offset", offset)

	agg := window.NewAggregator(p.opts.width, p.opts.grace)
	committed := offset

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		events, err := p.source.Fetch(ctx, partition, offset, p.opts.fetchSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("failed to fetch records", "offset", offset, "error", err)
			if err := p.wait(ctx); err != nil {
				return err
			}
			continue
		}

		for _, ev := range events {
			ev.Arrived = p.opts.now()
			offset = ev.Offset + 1
			p.admit(ctx, log, agg, ev)
		}

		p.drain(ctx, log, agg)

		// Acknowledge everything no open window still holds.
		safe := offset
		if lw, ok := agg.LowWatermark(); ok && lw < safe {
			safe = lw
		}
		if safe > committed {
			if err := p.source.CommitOffset(ctx, partition, safe); err != nil {
				log.Error("failed to commit offset", "offset", safe, "error", err)
			} else {
				committed = safe
			}
		}

		if len(events) == 0 {
			if err := p.wait(ctx); err != nil {
				return err
			}
		}
	}
}

// admit runs the event through the filter and key extraction and buffers it.
// Both fail closed per event: the record is dropped and logged, the stream
// continues.
func (p *Pipeline) admit(ctx context.Context, log *slog.Logger, agg *window.Aggregator, ev record.RawEvent) {
	keep, err := record.Filter(ev)
	if err != nil {
		log.Error("dropping unreadable record", "offset", ev.Offset, "record", string(ev.Value), "error", err)
		p.opts.metrics.RecordDrop(ctx, "malformed")
		return
	}
	if !keep {
		p.opts.metrics.RecordDrop(ctx, "filtered")
		return
	}

	key, err := record.ExtractKey(ev)
	if err != nil {
		log.Error("dropping record without grouping key", "offset", ev.Offset, "record", string(ev.Value), "error", err)
		p.opts.metrics.RecordDrop(ctx, "no_key")
		return
	}

	agg.Append(key, ev)
}

// drain emits every window past its deadline and processes the batches in
// order.
func (p *Pipeline) drain(ctx context.Context, log *slog.Logger, agg *window.Aggregator) {
	for _, batch := range agg.Flush(p.opts.now()) {
		p.processBatch(ctx, log, batch)
	}
}

// processBatch runs one batch through tenant resolution, dispatch and
// commit. All failure modes are contained here: a failed batch is logged and
// dropped, never retried, and never affects other batches. The resolved
// tenant scope lives only for the duration of this call.
func (p *Pipeline) processBatch(ctx context.Context, log *slog.Logger, batch window.Batch) {
	log = log.With("key", batch.Key.String())

	// Shutdown lets an in-flight batch finish its transaction.
	bctx := context.WithoutCancel(ctx)

	first := batch.First()
	sample, err := record.Parse(first.Value)
	if err != nil {
		log.Error("failed to parse first record, skipping whole batch",
			"record", string(first.Value), "error", err)
		p.opts.metrics.RecordBatch(ctx, observability.BatchDropped, len(batch.Events))
		return
	}

	tc, err := p.resolver.Resolve(bctx, sample)
	if errors.Is(err, tenant.ErrUnknownFlow) {
		log.Warn("skip saving flow information, no configured flow", "error", err)
		p.opts.metrics.RecordBatch(ctx, observability.BatchSkipped, len(batch.Events))
		return
	}
	if err != nil {
		log.Error("failed to process first record, skipping whole batch",
			"record", string(first.Value), "error", err)
		p.opts.metrics.RecordBatch(ctx, observability.BatchDropped, len(batch.Events))
		return
	}

	res, err := p.dispatcher.Dispatch(bctx, tc, batch, sample)
	if err != nil {
		log.Error("failed to process batch", "tenant", tc.Tenant, "error", err)
		p.opts.metrics.RecordBatch(ctx, observability.BatchAborted, len(batch.Events))
		return
	}

	if err := p.committer.Commit(bctx, tc, res.Entities); err != nil {
		log.Error("failed to commit batch, rolled back", "tenant", tc.Tenant, "error", err)
		p.opts.metrics.RecordBatch(ctx, observability.BatchAborted, len(batch.Events))
		return
	}

	p.opts.metrics.RecordBatch(ctx, observability.BatchCommitted, len(batch.Events))
	p.opts.metrics.RecordEntities(ctx, len(res.Entities))
	log.Debug("processed batch",
		"tenant", tc.Tenant, "events", len(batch.Events),
		"entities", len(res.Entities), "skipped", res.Skipped)
}

func (p *Pipeline) wait(ctx context.Context) error {
	timer := time.NewTimer(p.opts.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
