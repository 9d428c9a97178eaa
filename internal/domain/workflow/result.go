package workflow

import "github.com/railzwaylabs/tier-orchestrator/internal/domain/tier"

// Status is the terminal outcome of a tier-change run.
type Status string

const (
	StatusApplied                        Status = "applied"
	StatusAppliedPendingPayment          Status = "applied_pending_payment"
	StatusTenantUpdateFailed             Status = "tenant_update_failed"
	StatusTenantUpdateOutcomeUnknown     Status = "tenant_update_outcome_unknown"
	StatusBillingFailedAfterTenantUpdate Status = "billing_failed_after_tenant_update"
)

// TenantRecordChanged reports whether the tenant record is known to carry
// the new product.
func (s Status) TenantRecordChanged() bool {
	switch s {
	case StatusApplied, StatusAppliedPendingPayment, StatusBillingFailedAfterTenantUpdate:
		return true
	default:
		return false
	}
}

// RequiresFollowUp reports whether an operator must act before the change is consistent.
func (s Status) RequiresFollowUp() bool {
	switch s {
	case StatusBillingFailedAfterTenantUpdate, StatusTenantUpdateOutcomeUnknown:
		return true
	default:
		return false
	}
}

// Service names the backend a failure came from.
type Service string

const (
	ServiceTenant  Service = "tenant"
	ServiceBilling Service = "billing"
	ServiceCatalog Service = "catalog"
)

// FailureInterrupted marks a leg whose outcome was never recorded because
// the run stopped before its call returned.
const FailureInterrupted = "interrupted"

// Failure describes one observed backend failure.
type Failure struct {
	Service Service `json:"service"`
	Kind    string  `json:"kind"`
	Code    int     `json:"code,omitempty"`
	Message string  `json:"message"`
}

// TierChangeResult is returned to the caller of a tier-change run. The caller
// refreshes only the affected tenant from it.
type TierChangeResult struct {
	RunID           int64               `json:"run_id,string"`
	OrganizationID  string              `json:"organization_id"`
	TenantID        int64               `json:"tenant_id"`
	TargetProductID string              `json:"target_product_id"`
	TargetPriceID   *string             `json:"target_price_id,omitempty"`
	Status          Status              `json:"status"`
	Classification  tier.Classification `json:"classification"`
	ChangeType      string              `json:"change_type"`
	RedirectURL     string              `json:"redirect_url,omitempty"`
	Message         string              `json:"message,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
	Failure         *Failure            `json:"failure,omitempty"`
	Replayed        bool                `json:"replayed,omitempty"`
}

// Outcome of one decommission leg.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnknown   Outcome = "unknown"
)

// LegResult is the outcome of one call in the decommission sequence.
type LegResult struct {
	Outcome Outcome  `json:"outcome"`
	Failure *Failure `json:"failure,omitempty"`
}

// Succeeded reports whether the leg completed.
func (l LegResult) Succeeded() bool { return l.Outcome == OutcomeSucceeded }

// DecommissionResult reports both legs separately; they are never collapsed.
type DecommissionResult struct {
	RunID         int64     `json:"run_id,string"`
	TenantID      int64     `json:"tenant_id"`
	TenantResult  LegResult `json:"tenant_result"`
	BillingResult LegResult `json:"billing_result"`
}

// Complete reports whether both systems acknowledged the decommission.
func (r DecommissionResult) Complete() bool {
	return r.TenantResult.Succeeded() && r.BillingResult.Succeeded()
}
