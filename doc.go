// Package importer ingests workflow-engine execution events from a
// partitioned append log and imports them into tenant-scoped relational
// stores.
//
// Events flow through five stages. A filter drops irrelevant records, a key
// extractor derives the (process instance, event category) grouping key, a
// windowed aggregator buffers events sharing a key into short time-bounded
// batches, a tenant resolver determines the owning tenant and flow
// configuration from each batch's first record, and a category dispatcher
// hands every event to its parsing collaborator before all produced entities
// are committed in one transaction on the tenant's handle.
//
// Basic usage:
//
//	log, err := eventlog.Open("data/eventlog", eventlog.DefaultOptions())
//	if err != nil {
//	    panic(err)
//	}
//
//	flows := flow.NewConfig(flow.Flow{ID: "orderFlow", Type: "TRANSFER"})
//	directory := sqlite.NewDirectory("data", []string{"tenantA"})
//
//	pipeline := importer.New(
//	    log,
//	    tenant.NewResolver(flows, directory, logger),
//	    dispatch.NewDispatcher(parser.New(), dispatch.Options{}, logger),
//	    commit.NewCommitter(sqlite.Repositories{}, logger),
//	)
//
//	if err := pipeline.Run(ctx); err != nil {
//	    logger.Error("pipeline stopped", "error", err)
//	}
//
// Failure handling is deliberately tiered: an unreadable record is dropped
// alone, a batch whose tenant cannot be resolved is dropped whole, a batch
// for an unconfigured flow is skipped without error, and a persistence
// failure rolls back every write of its batch. Nothing is retried
// internally; the source log redelivers unacknowledged offsets after a
// restart.
package importer
