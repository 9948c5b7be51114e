package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fynarfin/ph-ee-importer-rdbms/flow"
	"github.com/fynarfin/ph-ee-importer-rdbms/record"
)

var (
	// ErrUnknownFlow marks a batch whose flow identifier has no
	// configuration. The batch is skipped, not failed.
	ErrUnknownFlow = errors.New("tenant: no configured flow")

	ErrNoFlowTenant        = errors.New("tenant: no bpmnProcessId in record")
	ErrAmbiguousFlowTenant = errors.New("tenant: more than one bpmnProcessId in record")
)

// Resolver determines the tenant and flow configuration applying to a batch.
type Resolver struct {
	flows *flow.Config
	dir   Directory
	log   *slog.Logger
}

func NewResolver(flows *flow.Config, dir Directory, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{flows: flows, dir: dir, log: log}
}

// Resolve reads the combined flow-tenant identifier from a batch's sample
// document, splits it into flow and tenant, looks up the flow configuration
// and the tenant's persistence handle, and returns the batch scope.
//
// An unconfigured flow returns ErrUnknownFlow; callers skip the batch without
// treating it as a failure. Any other error drops the whole batch.
func (r *Resolver) Resolve(ctx context.Context, sample record.Document) (Context, error) {
	combined, err := r.findFlowTenant(sample)
	if err != nil {
		return Context{}, err
	}

	flowID, tenantName, err := splitFlowTenant(combined)
	if err != nil {
		return Context{}, err
	}

	f, ok := r.flows.Find(flowID)
	if !ok {
		return Context{}, fmt.Errorf("%w: %s", ErrUnknownFlow, flowID)
	}

	r.log.Debug("resolving tenant connection", "tenant", tenantName, "flow", flowID)
	db, err := r.dir.Lookup(ctx, tenantName)
	if err != nil {
		return Context{}, fmt.Errorf("lookup tenant %q: %w", tenantName, err)
	}

	return Context{
		Tenant:   tenantName,
		FlowID:   flowID,
		FlowType: f.Type,
		DB:       db,
	}, nil
}

// findFlowTenant reads the flow-tenant identifier from its primary location,
// falling back to a search over nested occurrences of the same field, which
// must match exactly once.
func (r *Resolver) findFlowTenant(sample record.Document) (string, error) {
	if id, ok := sample.Lookup("value.bpmnProcessId"); ok {
		return id.String(), nil
	}

	r.log.Warn("no bpmnProcessId at primary location, searching nested occurrences",
		"record", sample.Raw())
	ids := sample.Collect("value", "bpmnProcessId")
	switch len(ids) {
	case 0:
		return "", ErrNoFlowTenant
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %v", ErrAmbiguousFlowTenant, ids)
	}
}

// splitFlowTenant splits a combined identifier such as "orderFlow-tenantA" on
// its first separator. Fewer than two non-empty segments is fatal for the
// batch.
func splitFlowTenant(combined string) (flowID, tenantName string, err error) {
	before, after, found := strings.Cut(combined, "-")
	if !found || before == "" || after == "" {
		return "", "", fmt.Errorf("tenant: identifier %q carries no tenant information", combined)
	}
	return before, after, nil
}
