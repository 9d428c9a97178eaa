package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierChangeRequest_Validate(t *testing.T) {
	err := TierChangeRequest{}.Validate()

	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "organization_id")
	assert.Contains(t, err.Error(), "target_product_id")
}

func TestRun_TierChangePaths(t *testing.T) {
	paths := [][]State{
		{StateTenantUpdating, StateTenantUpdateFailed},
		{StateTenantUpdating, StateTenantUpdateUnseen},
		{StateTenantUpdating, StateBillingCheck, StateNoBillingNeeded, StateDone},
		{StateTenantUpdating, StateBillingCheck, StateBillingUpdating, StateBillingApplied, StateDone},
		{StateTenantUpdating, StateBillingCheck, StateBillingUpdating, StateBillingFailed, StateDone, StateBillingUpdating},
	}
	for _, path := range paths {
		run := NewRun(1, KindTierChange, "cid")
		for _, next := range path {
			require.NoError(t, run.Transition(next))
		}
	}
}

func TestRun_RejectsBillingBeforeTenant(t *testing.T) {
	run := NewRun(1, KindTierChange, "cid")

	err := run.Transition(StateBillingUpdating)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	require.NoError(t, run.Transition(StateTenantUpdating))
	require.NoError(t, run.Transition(StateTenantUpdateFailed))
	assert.True(t, run.Finished())
	assert.ErrorIs(t, run.Transition(StateBillingCheck), ErrInvalidTransition)
}

func TestRun_CompleteRoutesFailures(t *testing.T) {
	run := NewRun(1, KindTierChange, "cid")
	run.Complete(&TierChangeResult{
		Status:  StatusBillingFailedAfterTenantUpdate,
		Failure: &Failure{Service: ServiceBilling, Kind: "server"},
	})

	assert.Nil(t, run.TenantFailure)
	require.NotNil(t, run.BillingFailure)
	assert.Equal(t, ServiceBilling, run.TierChangeResult().Failure.Service)
	assert.True(t, run.Status.RequiresFollowUp())
	assert.True(t, run.Status.TenantRecordChanged())
}

func TestWarnings_RoundTrip(t *testing.T) {
	assert.Nil(t, SplitWarnings(""))
	assert.Equal(t, []string{"a", "b"}, SplitWarnings(JoinWarnings([]string{"a", "b"})))
}

func stringPtr(s string) *string { return &s }

func TestTierChangeRequest_Matches(t *testing.T) {
	stored := &TierChangeResult{
		OrganizationID:  "org-1",
		TenantID:        42,
		TargetProductID: "pro",
		TargetPriceID:   stringPtr("pro-monthly"),
	}
	base := TierChangeRequest{OrganizationID: "org-1", TenantID: 42, TargetProductID: "pro"}

	assert.True(t, base.Matches(stored), "no price accepts the resolved one")

	withPrice := base
	withPrice.TargetPriceID = stringPtr("pro-monthly")
	assert.True(t, withPrice.Matches(stored))

	otherPrice := base
	otherPrice.TargetPriceID = stringPtr("pro-yearly")
	assert.False(t, otherPrice.Matches(stored))

	otherTenant := base
	otherTenant.TenantID = 77
	assert.False(t, otherTenant.Matches(stored))

	otherOrg := base
	otherOrg.OrganizationID = "org-2"
	assert.False(t, otherOrg.Matches(stored))

	otherProduct := base
	otherProduct.TargetProductID = "basic"
	assert.False(t, otherProduct.Matches(stored))

	unpriced := &TierChangeResult{OrganizationID: "org-1", TenantID: 42, TargetProductID: "pro"}
	assert.False(t, withPrice.Matches(unpriced))
}

func TestRun_Stale(t *testing.T) {
	cutoff := time.Now().Add(-time.Minute)

	run := NewRun(1, KindTierChange, "cid")
	run.State = StateBillingCheck
	assert.False(t, run.Stale(cutoff))

	run.UpdatedAt = cutoff.Add(-time.Second)
	assert.True(t, run.Stale(cutoff))

	run.State = StateDone
	assert.False(t, run.Stale(cutoff))
}
