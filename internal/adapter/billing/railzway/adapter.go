// Package railzway adapts the billing service client to the billing and
// catalog ports.
package railzway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
	"github.com/railzwaylabs/tier-orchestrator/pkg/billingclient"
)

type Adapter struct {
	client *billingclient.Client
}

func NewAdapter(client *billingclient.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) FetchCatalog(ctx context.Context, applicationID int64) ([]catalog.Product, error) {
	records, err := a.client.ListProducts(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogUnavailable, err)
	}

	products := make([]catalog.Product, 0, len(records))
	for _, r := range records {
		products = append(products, toProduct(r))
	}
	return products, nil
}

func (a *Adapter) ApplyTierChange(ctx context.Context, organizationID string, tenantID int64, priceID *string, changeType string) (billing.ApplyOutcome, error) {
	resp, err := a.client.ChangeTenantSubscription(ctx, organizationID, billingclient.TenantChangeRequest{
		PriceID:    priceID,
		TenantID:   tenantID,
		ChangeType: changeType,
	})
	if err != nil {
		return billing.ApplyOutcome{}, mapError(err)
	}

	var outcome billing.ApplyOutcome
	if resp.RedirectURL != nil {
		outcome.RedirectURL = *resp.RedirectURL
	}
	return outcome, nil
}

func (a *Adapter) StopSubscription(ctx context.Context, organizationID string, tenantID int64) error {
	if err := a.client.StopTenantSubscription(ctx, organizationID, tenantID); err != nil {
		return mapError(err)
	}
	return nil
}

// Mappers

// toProduct normalizes both catalog shapes. When an entry carries both the
// legacy and the current field, the current one wins.
func toProduct(r billingclient.ProductRecord) catalog.Product {
	records := r.Prices
	if len(records) == 0 {
		records = r.Price
	}

	prices := make([]catalog.Price, 0, len(records))
	for _, pr := range records {
		prices = append(prices, toPrice(pr))
	}

	return catalog.Product{
		ID:        r.ID,
		AppID:     r.AppID,
		TierName:  r.TierName,
		TierIndex: r.TierIndex,
		Prices:    prices,
	}
}

func toPrice(r billingclient.PriceRecord) catalog.Price {
	p := catalog.Price{
		ID:         r.ID,
		ProductID:  r.ProductID,
		Recurrence: r.Recurrence,
	}
	if p.Recurrence == nil {
		p.Recurrence = r.Reccurence
	}
	switch {
	case r.PriceValue != nil:
		p.Value = *r.PriceValue
	case r.Price != nil:
		p.Value = *r.Price
	}
	return p
}

func mapError(err error) error {
	if billingclient.IsOpen(err) {
		return &billing.ServiceError{Kind: billing.KindUnavailable, Message: "billing service circuit is open", Err: err}
	}
	if billingclient.IsTimeout(err) {
		return &billing.ServiceError{Kind: billing.KindTimeout, Message: "billing service did not answer in time", Err: err}
	}

	var apiErr *billingclient.APIError
	if !errors.As(err, &apiErr) {
		return &billing.ServiceError{Kind: billing.KindServer, Message: err.Error(), Err: err}
	}

	se := &billing.ServiceError{Code: apiErr.Status, Message: apiErr.Message, Err: err}
	switch {
	case apiErr.Status == http.StatusUnauthorized:
		se.Kind = billing.KindUnauthorized
	case apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests:
		se.Kind = billing.KindServer
	default:
		se.Kind = billing.KindRejected
	}
	return se
}
