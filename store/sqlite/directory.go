package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
)

// Directory hands out per-tenant database handles. Tenants outside the
// configured set are refused, which drops their batches upstream. Handles
// are opened lazily and cached for the process lifetime.
type Directory struct {
	root    string
	allowed map[string]struct{}

	mu     sync.Mutex
	stores map[string]*Store
}

// NewDirectory creates a directory rooted at dir, restricted to the given
// tenant names.
func NewDirectory(dir string, tenants []string) *Directory {
	allowed := make(map[string]struct{}, len(tenants))
	for _, t := range tenants {
		allowed[t] = struct{}{}
	}
	return &Directory{
		root:    dir,
		allowed: allowed,
		stores:  make(map[string]*Store),
	}
}

// Lookup returns the tenant's database handle, opening its store on first
// use.
func (d *Directory) Lookup(_ context.Context, tenant string) (*sql.DB, error) {
	if _, ok := d.allowed[tenant]; !ok {
		return nil, fmt.Errorf("sqlite: tenant %q is not configured", tenant)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if st, ok := d.stores[tenant]; ok {
		return st.DB(), nil
	}
	st, err := Open(filepath.Join(d.root, tenant+".db"))
	if err != nil {
		return nil, fmt.Errorf("open tenant %q store: %w", tenant, err)
	}
	d.stores[tenant] = st
	return st.DB(), nil
}

// Store returns the cached store for a tenant, if open.
func (d *Directory) Store(tenant string) (*Store, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.stores[tenant]
	return st, ok
}

// Close closes every open tenant store.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for name, st := range d.stores {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close tenant %q store: %w", name, err)
		}
		delete(d.stores, name)
	}
	return firstErr
}
