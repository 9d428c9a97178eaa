package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tier"
)

// Kind of orchestrator run.
type Kind string

const (
	KindTierChange   Kind = "tier_change"
	KindDecommission Kind = "decommission"
)

// State is the position of a run in its state machine.
type State string

const (
	StateIdle               State = "idle"
	StateTenantUpdating     State = "tenant_updating"
	StateTenantUpdateFailed State = "tenant_update_failed"
	StateTenantUpdateUnseen State = "tenant_update_unknown"
	StateBillingCheck       State = "billing_check"
	StateNoBillingNeeded    State = "no_billing_needed"
	StateBillingUpdating    State = "billing_updating"
	StateBillingApplied     State = "billing_applied"
	StateBillingFailed      State = "billing_failed"

	StateTenantDecommissioning State = "tenant_decommissioning"
	StateBillingStopping       State = "billing_stopping"

	StateDone State = "done"
)

var ErrInvalidTransition = errors.New("invalid run state transition")

var transitions = map[State][]State{
	StateIdle:                  {StateTenantUpdating, StateTenantDecommissioning},
	StateTenantUpdating:        {StateTenantUpdateFailed, StateTenantUpdateUnseen, StateBillingCheck},
	StateBillingCheck:          {StateNoBillingNeeded, StateBillingUpdating},
	StateNoBillingNeeded:       {StateDone},
	StateBillingUpdating:       {StateBillingApplied, StateBillingFailed},
	StateBillingApplied:        {StateDone},
	StateBillingFailed:         {StateDone},
	StateTenantDecommissioning: {StateBillingStopping},
	StateBillingStopping:       {StateDone},
	// operator-initiated billing follow-up
	StateDone: {StateBillingUpdating},
}

// CanTransition reports whether a run may move from current to target.
func CanTransition(current, target State) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further automatic transition exists.
func (s State) Terminal() bool {
	switch s {
	case StateTenantUpdateFailed, StateTenantUpdateUnseen, StateDone:
		return true
	default:
		return false
	}
}

// Run is the durable record of one orchestrator run.
type Run struct {
	ID              int64               `json:"id,string"`
	Kind            Kind                `json:"kind"`
	CorrelationID   string              `json:"correlation_id"`
	IdempotencyKey  string              `json:"idempotency_key,omitempty"`
	OrganizationID  string              `json:"organization_id"`
	TenantID        int64               `json:"tenant_id"`
	ApplicationID   int64               `json:"app_id,omitempty"`
	TargetProductID string              `json:"target_product_id,omitempty"`
	TargetPriceID   *string             `json:"target_price_id,omitempty"`
	Classification  tier.Classification `json:"classification,omitempty"`
	ChangeType      string              `json:"change_type,omitempty"`
	State           State               `json:"state"`
	Status          Status              `json:"status,omitempty"`
	RedirectURL     string              `json:"redirect_url,omitempty"`
	Message         string              `json:"message,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
	TenantFailure   *Failure            `json:"tenant_failure,omitempty"`
	BillingFailure  *Failure            `json:"billing_failure,omitempty"`
	TenantOutcome   Outcome             `json:"tenant_outcome,omitempty"`
	BillingOutcome  Outcome             `json:"billing_outcome,omitempty"`
	BillingAttempts int                 `json:"billing_attempts"`
	Operator        string              `json:"operator,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewRun creates a run in idle state.
func NewRun(id int64, kind Kind, correlationID string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:            id,
		Kind:          kind,
		CorrelationID: correlationID,
		State:         StateIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Transition moves the run to the next state.
func (r *Run) Transition(next State) error {
	if !CanTransition(r.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.State = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Finished reports whether the run reached a terminal state.
func (r *Run) Finished() bool {
	return r.State.Terminal()
}

// Stale reports whether the run stopped short of a terminal state and has
// not been written since cutoff.
func (r *Run) Stale(cutoff time.Time) bool {
	return !r.Finished() && r.UpdatedAt.Before(cutoff)
}

// Complete records the terminal outcome of a tier change.
func (r *Run) Complete(res *TierChangeResult) {
	r.Status = res.Status
	r.RedirectURL = res.RedirectURL
	r.Message = res.Message
	r.TenantFailure, r.BillingFailure = nil, nil
	if res.Failure != nil {
		switch res.Failure.Service {
		case ServiceBilling:
			r.BillingFailure = res.Failure
		default:
			r.TenantFailure = res.Failure
		}
	}
	r.UpdatedAt = time.Now().UTC()
}

// TierChangeResult rebuilds the caller-facing result from the record.
func (r *Run) TierChangeResult() *TierChangeResult {
	return &TierChangeResult{
		RunID:           r.ID,
		OrganizationID:  r.OrganizationID,
		TenantID:        r.TenantID,
		TargetProductID: r.TargetProductID,
		TargetPriceID:   r.TargetPriceID,
		Status:          r.Status,
		Classification:  r.Classification,
		ChangeType:      r.ChangeType,
		RedirectURL:     r.RedirectURL,
		Message:         r.Message,
		Warnings:        r.Warnings,
		Failure:         r.failure(),
	}
}

func (r *Run) failure() *Failure {
	if r.BillingFailure != nil {
		return r.BillingFailure
	}
	return r.TenantFailure
}

// DecommissionResult rebuilds the per-leg result from the record.
func (r *Run) DecommissionResult() *DecommissionResult {
	return &DecommissionResult{
		RunID:         r.ID,
		TenantID:      r.TenantID,
		TenantResult:  LegResult{Outcome: r.TenantOutcome, Failure: r.TenantFailure},
		BillingResult: LegResult{Outcome: r.BillingOutcome, Failure: r.BillingFailure},
	}
}

// JoinWarnings flattens warnings for storage.
func JoinWarnings(w []string) string {
	return strings.Join(w, "\n")
}

// SplitWarnings is the inverse of JoinWarnings.
func SplitWarnings(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
