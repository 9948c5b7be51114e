package commit_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fynarfin/ph-ee-importer-rdbms/commit"
	"github.com/fynarfin/ph-ee-importer-rdbms/dispatch"
	"github.com/fynarfin/ph-ee-importer-rdbms/store/sqlite"
	"github.com/fynarfin/ph-ee-importer-rdbms/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenantContext(t *testing.T) (tenant.Context, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "tenant1.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return tenant.Context{Tenant: "tenant1", DB: st.DB()}, st
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// failingRepos wraps the real repositories and fails a chosen save.
type failingRepos struct {
	sqlite.Repositories
	failVariable bool
}

func (r failingRepos) SaveVariable(ctx context.Context, tx *sql.Tx, v dispatch.VariableRecord) error {
	if r.failVariable {
		return errors.New("disk full")
	}
	return r.Repositories.SaveVariable(ctx, tx, v)
}

func TestCommitterCommitsAllEntities(t *testing.T) {
	tc, st := tenantContext(t)
	c := commit.NewCommitter(sqlite.Repositories{}, nil)

	err := c.Commit(context.Background(), tc, []dispatch.Entity{
		dispatch.TaskRecord{WorkflowInstanceKey: 1, Timestamp: 1, ElementID: "a"},
		dispatch.VariableRecord{WorkflowInstanceKey: 1, Name: "x", Timestamp: 1},
		dispatch.IncidentRecord{WorkflowInstanceKey: 1, Timestamp: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, st.DB(), "tasks"))
	assert.Equal(t, 1, countRows(t, st.DB(), "variables"))
	assert.Equal(t, 1, countRows(t, st.DB(), "incidents"))
}

func TestCommitterRollsBackWholeBatch(t *testing.T) {
	tc, st := tenantContext(t)

	// A batch committed before the failure stays intact.
	prior := commit.NewCommitter(sqlite.Repositories{}, nil)
	require.NoError(t, prior.Commit(context.Background(), tc, []dispatch.Entity{
		dispatch.TaskRecord{WorkflowInstanceKey: 9, Timestamp: 9, ElementID: "prior"},
	}))

	c := commit.NewCommitter(failingRepos{failVariable: true}, nil)
	err := c.Commit(context.Background(), tc, []dispatch.Entity{
		dispatch.TaskRecord{WorkflowInstanceKey: 1, Timestamp: 1, ElementID: "a"},
		dispatch.VariableRecord{WorkflowInstanceKey: 1, Name: "x", Timestamp: 1},
	})
	require.Error(t, err)

	// The failing batch left nothing behind, not even its task row.
	assert.Equal(t, 1, countRows(t, st.DB(), "tasks"))
	assert.Equal(t, 0, countRows(t, st.DB(), "variables"))
}

type unknownEntity struct{ dispatch.Entity }

func TestCommitterUnknownVariantIsFatal(t *testing.T) {
	tc, st := tenantContext(t)
	c := commit.NewCommitter(sqlite.Repositories{}, nil)

	err := c.Commit(context.Background(), tc, []dispatch.Entity{
		dispatch.TaskRecord{WorkflowInstanceKey: 1, Timestamp: 1, ElementID: "a"},
		unknownEntity{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected entity type")
	assert.Equal(t, 0, countRows(t, st.DB(), "tasks"))
}

func TestCommitterEmptyBatchIsNoop(t *testing.T) {
	c := commit.NewCommitter(sqlite.Repositories{}, nil)
	// No transaction is opened, so a nil handle is fine.
	assert.NoError(t, c.Commit(context.Background(), tenant.Context{}, nil))
}
