package billingclient

import (
	"context"
	"fmt"
	"net/http"
)

// PriceRecord captures both price shapes served by the billing catalog:
// the legacy one (price, reccurence) and the current one (price_value,
// recurrence).
type PriceRecord struct {
	ID         *string  `json:"id"`
	ProductID  *string  `json:"product_id"`
	Price      *float64 `json:"price,omitempty"`
	PriceValue *float64 `json:"price_value,omitempty"`
	Reccurence *string  `json:"reccurence,omitempty"`
	Recurrence *string  `json:"recurrence,omitempty"`
}

// ProductRecord is one catalog entry as served on the wire. Legacy entries
// list prices under "price", current ones under "prices".
type ProductRecord struct {
	ID        string        `json:"id"`
	AppID     int64         `json:"app_id"`
	TierName  string        `json:"tier_name"`
	TierIndex *int          `json:"tier_index,omitempty"`
	Price     []PriceRecord `json:"price,omitempty"`
	Prices    []PriceRecord `json:"prices,omitempty"`
}

// ListProducts returns the catalog entries offered for an application.
func (c *Client) ListProducts(ctx context.Context, appID int64) ([]ProductRecord, error) {
	url := fmt.Sprintf("%s/api/v1/products/%d", c.cfg.CatalogURL, appID)

	var out ResponseWrapper[[]ProductRecord]
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &out, true); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if err := bodyError(http.StatusOK, out.Error); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out.Data, nil
}
