package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("invalid tier change request")
	ErrRunInProgress  = errors.New("a run with this idempotency key is still in progress")
	ErrRunNotFound    = errors.New("run not found")
	ErrNotRetryable   = errors.New("run is not awaiting billing follow-up")

	ErrIdempotencyKeyMismatch = errors.New("idempotency key was issued for a different tier change")
)

// TierChangeRequest is what an operator submits to change a tenant's tier.
// An empty CurrentProductID means the tenant has no product yet.
type TierChangeRequest struct {
	OrganizationID   string  `json:"organization_id"`
	TenantID         int64   `json:"tenant_id"`
	ApplicationID    int64   `json:"app_id"`
	CurrentProductID string  `json:"current_product_id,omitempty"`
	TargetProductID  string  `json:"target_product_id"`
	TargetPriceID    *string `json:"target_price_id"`
	IdempotencyKey   string  `json:"-"`
	Operator         string  `json:"-"`
}

// Validate checks the request shape. Catalog consistency is checked later,
// against a fresh catalog read.
func (r TierChangeRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.OrganizationID) == "" {
		problems = append(problems, "organization_id is required")
	}
	if r.TenantID <= 0 {
		problems = append(problems, "tenant_id is required")
	}
	if r.ApplicationID <= 0 {
		problems = append(problems, "app_id is required")
	}
	if strings.TrimSpace(r.TargetProductID) == "" {
		problems = append(problems, "target_product_id is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// Matches reports whether res answers this request. A request without a
// price accepts whichever price the run resolved.
func (r TierChangeRequest) Matches(res *TierChangeResult) bool {
	if res.OrganizationID != r.OrganizationID || res.TenantID != r.TenantID || res.TargetProductID != r.TargetProductID {
		return false
	}
	if r.TargetPriceID == nil {
		return true
	}
	return res.TargetPriceID != nil && *res.TargetPriceID == *r.TargetPriceID
}
