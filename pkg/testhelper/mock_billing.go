package testhelper

import (
	"context"
	"sync"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
)

// ApplyCall captures one ApplyTierChange invocation.
type ApplyCall struct {
	OrganizationID string
	TenantID       int64
	PriceID        *string
	ChangeType     string
	Token          string
	CtxErr         error
}

// MockBilling implements billing.Reconciler and billing.CatalogSource.
type MockBilling struct {
	mu  sync.Mutex
	Log *CallLog

	Products   []catalog.Product
	CatalogErr error

	ApplyOutcome billing.ApplyOutcome
	ApplyErr     error
	ApplyCalls   []ApplyCall

	StopErr   error
	StopCalls []int64
}

func (m *MockBilling) FetchCatalog(ctx context.Context, applicationID int64) ([]catalog.Product, error) {
	m.Log.Record("billing.fetch_catalog")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CatalogErr != nil {
		return nil, m.CatalogErr
	}
	out := make([]catalog.Product, len(m.Products))
	copy(out, m.Products)
	return out, nil
}

func (m *MockBilling) ApplyTierChange(ctx context.Context, organizationID string, tenantID int64, priceID *string, changeType string) (billing.ApplyOutcome, error) {
	m.Log.Record("billing.apply_tier_change")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyCalls = append(m.ApplyCalls, ApplyCall{
		OrganizationID: organizationID,
		TenantID:       tenantID,
		PriceID:        priceID,
		ChangeType:     changeType,
		Token:          credential.TokenFromContext(ctx),
		CtxErr:         ctx.Err(),
	})
	if m.ApplyErr != nil {
		return billing.ApplyOutcome{}, m.ApplyErr
	}
	return m.ApplyOutcome, nil
}

func (m *MockBilling) StopSubscription(ctx context.Context, organizationID string, tenantID int64) error {
	m.Log.Record("billing.stop_subscription")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls = append(m.StopCalls, tenantID)
	return m.StopErr
}
