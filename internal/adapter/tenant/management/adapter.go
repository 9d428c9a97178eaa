// Package management adapts the tenant-management client to the tenant ports.
package management

import (
	"context"
	"errors"
	"net/http"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
	"github.com/railzwaylabs/tier-orchestrator/pkg/tenantclient"
)

type Adapter struct {
	client *tenantclient.Client
}

func NewAdapter(client *tenantclient.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) ChangeTier(ctx context.Context, tenantID int64, newProductID string) (tenant.ChangeTierOutcome, error) {
	resp, err := a.client.ChangeTier(ctx, tenantID, newProductID)
	if err != nil {
		return tenant.ChangeTierOutcome{}, mapError(err)
	}
	return tenant.ChangeTierOutcome{UsesBilling: resp.UseBilling}, nil
}

func (a *Adapter) Decommission(ctx context.Context, tenantID int64) error {
	if err := a.client.Decommission(ctx, tenantID); err != nil {
		return mapError(err)
	}
	return nil
}

func (a *Adapter) GetTenant(ctx context.Context, tenantID int64) (*tenant.Tenant, error) {
	rec, err := a.client.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, mapError(err)
	}
	return toDomain(rec), nil
}

// Mappers

func toDomain(r *tenantclient.TenantRecord) *tenant.Tenant {
	t := &tenant.Tenant{
		ID:        r.ID,
		Name:      r.Name,
		Status:    tenant.ParseStatus(r.Status),
		ProductID: r.ProductID,
		Tier:      r.Tier,
		AppID:     r.AppID,
		AppName:   r.AppName,
	}
	if r.Resources != nil {
		t.Resources = &tenant.Resources{
			ComputeURL: r.Resources.ComputeURL,
			AppIcon:    r.Resources.AppIcon,
			TenantIcon: r.Resources.TenantIcon,
			ServingURL: r.Resources.ServingURL,
		}
	}
	return t
}

func mapError(err error) error {
	if tenantclient.IsUnavailable(err) {
		return &tenant.ServiceError{Kind: tenant.KindUnavailable, Message: "tenant service circuit is open", Err: err}
	}
	if tenantclient.IsTimeout(err) {
		return &tenant.ServiceError{Kind: tenant.KindTimeout, Message: "tenant service did not answer in time", Err: err}
	}

	var se *tenantclient.StatusError
	if !errors.As(err, &se) {
		return &tenant.ServiceError{Kind: tenant.KindServer, Message: err.Error(), Err: err}
	}

	out := &tenant.ServiceError{Code: se.Status, Message: se.Message, Err: err}
	switch se.Status {
	case http.StatusConflict:
		out.Kind = tenant.KindConflict
	case http.StatusNotFound:
		out.Kind = tenant.KindNotFound
	case http.StatusUnauthorized:
		out.Kind = tenant.KindUnauthorized
	default:
		out.Kind = tenant.KindServer
	}
	return out
}
