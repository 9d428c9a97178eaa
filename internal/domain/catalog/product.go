package catalog

import "errors"

// ErrCatalogUnavailable is returned when the billing catalog cannot be read.
// Callers treat it as "no tiers offerable", never as fatal for the caller.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Price is one billable option of a Product.
type Price struct {
	ID         *string `json:"id"`
	ProductID  *string `json:"product_id"`
	Value      float64 `json:"price_value"`
	Recurrence *string `json:"recurrence"` // nil for one-time
}

// Product is a purchasable tier offering for one application.
// TierIndex is only meaningful for ordering within the same application;
// nil means the source did not rank the product.
type Product struct {
	ID        string  `json:"id"`
	AppID     int64   `json:"app_id"`
	TierName  string  `json:"tier_name"`
	TierIndex *int    `json:"tier_index"`
	Prices    []Price `json:"prices"`
}

// Ranked reports whether the product carries a tier index.
func (p *Product) Ranked() bool {
	return p != nil && p.TierIndex != nil
}

// DefaultPrice returns the first configured price, or nil when there is none.
func (p *Product) DefaultPrice() *Price {
	if p == nil || len(p.Prices) == 0 {
		return nil
	}
	return &p.Prices[0]
}

// PriceByID finds a price by identifier.
func (p *Product) PriceByID(id string) (*Price, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Prices {
		if p.Prices[i].ID != nil && *p.Prices[i].ID == id {
			return &p.Prices[i], true
		}
	}
	return nil, false
}

// Find returns the product with the given id.
func Find(products []Product, id string) (*Product, bool) {
	for i := range products {
		if products[i].ID == id {
			return &products[i], true
		}
	}
	return nil, false
}
