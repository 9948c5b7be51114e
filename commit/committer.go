// Package commit persists the entities produced by one batch inside a single
// transaction on the batch's tenant handle. A persistence failure is never
// isolated to one entity: the whole batch's writes roll back together.
package commit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fynarfin/ph-ee-importer-rdbms/dispatch"
	"github.com/fynarfin/ph-ee-importer-rdbms/tenant"
)

// Repositories is one save operation per entity variant, all executing on
// the supplied transaction.
type Repositories interface {
	SaveTask(ctx context.Context, tx *sql.Tx, task dispatch.TaskRecord) error
	SaveVariable(ctx context.Context, tx *sql.Tx, variable dispatch.VariableRecord) error
	SaveIncident(ctx context.Context, tx *sql.Tx, incident dispatch.IncidentRecord) error
	SaveInstance(ctx context.Context, tx *sql.Tx, instance dispatch.InstanceRecord) error
	SaveTimestamp(ctx context.Context, tx *sql.Tx, ts dispatch.TimestampRecord) error
}

// Committer writes batch results to the tenant-scoped store.
type Committer struct {
	repos Repositories
	log   *slog.Logger
}

func NewCommitter(repos Repositories, log *slog.Logger) *Committer {
	if log == nil {
		log = slog.Default()
	}
	return &Committer{repos: repos, log: log}
}

// Commit persists all entities in one transaction on the tenant's handle.
// Entities are routed by an exhaustive match over the closed variant set; an
// unrecognized variant is an internal error and rolls everything back, as
// does any failing save.
func (c *Committer) Commit(ctx context.Context, tc tenant.Context, entities []dispatch.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := tc.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx for tenant %q: %w", tc.Tenant, err)
	}
	defer tx.Rollback()

	for _, entity := range entities {
		if err := c.save(ctx, tx, entity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch for tenant %q: %w", tc.Tenant, err)
	}
	c.log.Debug("committed batch entities", "tenant", tc.Tenant, "entities", len(entities))
	return nil
}

func (c *Committer) save(ctx context.Context, tx *sql.Tx, entity dispatch.Entity) error {
	switch e := entity.(type) {
	case dispatch.TaskRecord:
		return c.repos.SaveTask(ctx, tx, e)
	case dispatch.VariableRecord:
		return c.repos.SaveVariable(ctx, tx, e)
	case dispatch.IncidentRecord:
		return c.repos.SaveIncident(ctx, tx, e)
	case dispatch.InstanceRecord:
		return c.repos.SaveInstance(ctx, tx, e)
	case dispatch.TimestampRecord:
		return c.repos.SaveTimestamp(ctx, tx, e)
	default:
		return fmt.Errorf("unexpected entity type %T", entity)
	}
}
