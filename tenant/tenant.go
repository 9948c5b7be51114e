// Package tenant resolves the owning tenant and flow configuration for a
// batch and carries them as an explicit per-batch context value. The context
// is established from a batch's first event, threaded through dispatch and
// commit, and discarded when the batch finishes; it is never stored in
// process-wide state and never shared between batches.
package tenant

import (
	"context"
	"database/sql"
)

// Directory maps tenant names to live persistence handles.
type Directory interface {
	Lookup(ctx context.Context, tenant string) (*sql.DB, error)
}

// DirectoryFunc adapts a function to the Directory interface.
type DirectoryFunc func(ctx context.Context, tenant string) (*sql.DB, error)

func (f DirectoryFunc) Lookup(ctx context.Context, tenant string) (*sql.DB, error) {
	return f(ctx, tenant)
}

// Context is the resolved scope for processing exactly one batch.
type Context struct {
	Tenant   string
	FlowID   string
	FlowType string
	DB       *sql.DB
}
