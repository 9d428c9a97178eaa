package billingclient

import (
	"context"
	"fmt"
	"net/http"
)

// TenantChangeRequest opens or changes the subscription backing a tenant.
type TenantChangeRequest struct {
	PriceID    *string `json:"price_id"`
	TenantID   int64   `json:"tenant_id"`
	ChangeType string  `json:"change_type"` // "upgrade", "downgrade"
}

// TenantChangeResponse carries the hosted payment page when the change
// needs the customer to settle a payment. Data is null otherwise.
type TenantChangeResponse struct {
	RedirectURL *string `json:"redirect_url"`
}

// ChangeTenantSubscription applies a tier change on the billing side.
// It is attempted exactly once.
func (c *Client) ChangeTenantSubscription(ctx context.Context, organizationID string, req TenantChangeRequest) (*TenantChangeResponse, error) {
	url := fmt.Sprintf("%s/v1/jwt/organizations/%s/tenants", c.cfg.APIURL, organizationID)

	var out ResponseWrapper[*TenantChangeResponse]
	if err := c.doRequest(ctx, http.MethodPost, url, req, &out, false); err != nil {
		return nil, fmt.Errorf("failed to change tenant subscription: %w", err)
	}
	if err := bodyError(http.StatusOK, out.Error); err != nil {
		return nil, fmt.Errorf("failed to change tenant subscription: %w", err)
	}
	if out.Data == nil {
		return &TenantChangeResponse{}, nil
	}
	return out.Data, nil
}

// StopTenantSubscription ends billing for a decommissioned tenant.
func (c *Client) StopTenantSubscription(ctx context.Context, organizationID string, tenantID int64) error {
	url := fmt.Sprintf("%s/v1/jwt/organizations/%s/tenants/stop", c.cfg.APIURL, organizationID)

	reqBody := map[string]interface{}{
		"tenant_id": tenantID,
	}

	var out ResponseWrapper[interface{}]
	if err := c.doRequest(ctx, http.MethodPost, url, reqBody, &out, false); err != nil {
		return fmt.Errorf("failed to stop tenant subscription: %w", err)
	}
	if err := bodyError(http.StatusOK, out.Error); err != nil {
		return fmt.Errorf("failed to stop tenant subscription: %w", err)
	}
	return nil
}
