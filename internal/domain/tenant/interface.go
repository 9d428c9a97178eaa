package tenant

import "context"

// ChangeTierOutcome is what the tenant-management service reports after
// persisting a new product assignment.
type ChangeTierOutcome struct {
	UsesBilling bool
}

// Mutator requests changes to tenant records. The tenant-management service
// is the sole arbiter of the record and serializes concurrent changes itself.
type Mutator interface {
	// ChangeTier assigns a new product to the tenant.
	ChangeTier(ctx context.Context, tenantID int64, newProductID string) (ChangeTierOutcome, error)

	// Decommission permanently deactivates the tenant.
	Decommission(ctx context.Context, tenantID int64) error
}

// Reader loads tenant snapshots.
type Reader interface {
	GetTenant(ctx context.Context, tenantID int64) (*Tenant, error)
}
