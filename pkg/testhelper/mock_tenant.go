package testhelper

import (
	"context"
	"sync"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
)

// ChangeTierCall captures one ChangeTier invocation.
type ChangeTierCall struct {
	TenantID     int64
	NewProductID string
	Token        string
	CtxErr       error
}

// MockTenantService implements tenant.Mutator and tenant.Reader.
type MockTenantService struct {
	mu  sync.Mutex
	Log *CallLog

	ChangeTierOutcome tenant.ChangeTierOutcome
	ChangeTierErr     error
	ChangeTierCalls   []ChangeTierCall

	DecommissionErr   error
	DecommissionCalls []int64

	Tenants map[int64]*tenant.Tenant
	GetErr  error
}

func (m *MockTenantService) ChangeTier(ctx context.Context, tenantID int64, newProductID string) (tenant.ChangeTierOutcome, error) {
	m.Log.Record("tenant.change_tier")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChangeTierCalls = append(m.ChangeTierCalls, ChangeTierCall{
		TenantID:     tenantID,
		NewProductID: newProductID,
		Token:        credential.TokenFromContext(ctx),
		CtxErr:       ctx.Err(),
	})
	if m.ChangeTierErr != nil {
		return tenant.ChangeTierOutcome{}, m.ChangeTierErr
	}
	return m.ChangeTierOutcome, nil
}

func (m *MockTenantService) Decommission(ctx context.Context, tenantID int64) error {
	m.Log.Record("tenant.decommission")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecommissionCalls = append(m.DecommissionCalls, tenantID)
	return m.DecommissionErr
}

func (m *MockTenantService) GetTenant(ctx context.Context, tenantID int64) (*tenant.Tenant, error) {
	m.Log.Record("tenant.get")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	t, ok := m.Tenants[tenantID]
	if !ok {
		return nil, &tenant.ServiceError{Kind: tenant.KindNotFound, Code: 404, Message: "tenant not found"}
	}
	return t, nil
}
