package billing

import (
	"context"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
)

// ApplyOutcome is the billing service's answer to a tier change.
// A non-empty RedirectURL means a hosted payment step must be completed
// before the change is financially final.
type ApplyOutcome struct {
	RedirectURL string
}

// PendingPayment reports whether a payment step is outstanding.
func (o ApplyOutcome) PendingPayment() bool {
	return o.RedirectURL != ""
}

// CatalogSource reads an application's product/price catalog.
type CatalogSource interface {
	// FetchCatalog returns the products offered for the application, in
	// catalog order. Failures wrap catalog.ErrCatalogUnavailable.
	FetchCatalog(ctx context.Context, applicationID int64) ([]catalog.Product, error)
}

// Reconciler keeps the billing service's subscriptions in line with tenants.
type Reconciler interface {
	// ApplyTierChange opens or changes the tenant's subscription to priceID.
	// changeType is "upgrade" or "downgrade". Never retried automatically.
	ApplyTierChange(ctx context.Context, organizationID string, tenantID int64, priceID *string, changeType string) (ApplyOutcome, error)

	// StopSubscription ends billing for the tenant.
	StopSubscription(ctx context.Context, organizationID string, tenantID int64) error
}
