package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
	"github.com/railzwaylabs/tier-orchestrator/pkg/testhelper"
)

func newRecovery(t *testing.T) (*Recovery, *testhelper.MockRunRepository, *metrics.Metrics) {
	t.Helper()
	runs := testhelper.NewMockRunRepository()
	m := metrics.New(prometheus.NewRegistry())
	return NewRecovery(runs, m, zaptest.NewLogger(t), 10*time.Minute), runs, m
}

func staleRun(id int64, kind workflow.Kind, state workflow.State) *workflow.Run {
	run := workflow.NewRun(id, kind, "cid")
	run.OrganizationID = "org-1"
	run.TenantID = 42
	run.State = state
	run.UpdatedAt = time.Now().Add(-time.Hour)
	return run
}

func TestRecovery_TierChangeStates(t *testing.T) {
	cases := []struct {
		from    workflow.State
		state   workflow.State
		status  workflow.Status
		message string
	}{
		{workflow.StateIdle, workflow.StateTenantUpdateUnseen, workflow.StatusTenantUpdateOutcomeUnknown, MessageTenantUnknown},
		{workflow.StateTenantUpdating, workflow.StateTenantUpdateUnseen, workflow.StatusTenantUpdateOutcomeUnknown, MessageTenantUnknown},
		{workflow.StateBillingCheck, workflow.StateDone, workflow.StatusBillingFailedAfterTenantUpdate, MessageBillingFollowUp},
		{workflow.StateBillingUpdating, workflow.StateDone, workflow.StatusBillingFailedAfterTenantUpdate, MessageBillingFollowUp},
		{workflow.StateBillingFailed, workflow.StateDone, workflow.StatusBillingFailedAfterTenantUpdate, MessageBillingFollowUp},
		{workflow.StateNoBillingNeeded, workflow.StateDone, workflow.StatusApplied, MessageApplied},
		{workflow.StateBillingApplied, workflow.StateDone, workflow.StatusApplied, MessageApplied},
	}
	for _, tc := range cases {
		t.Run(string(tc.from), func(t *testing.T) {
			r, runs, _ := newRecovery(t)
			run := staleRun(1, workflow.KindTierChange, tc.from)

			require.True(t, r.Inspect(context.Background(), run))

			assert.Equal(t, tc.state, run.State)
			assert.Equal(t, tc.status, run.Status)
			assert.Equal(t, tc.message, run.Message)
			assert.True(t, run.Finished())

			stored, err := runs.FindByID(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, stored.Status)
		})
	}
}

func TestRecovery_KeepsObservedBillingFailure(t *testing.T) {
	r, _, _ := newRecovery(t)
	run := staleRun(1, workflow.KindTierChange, workflow.StateBillingFailed)
	run.BillingFailure = &workflow.Failure{Service: workflow.ServiceBilling, Kind: "server", Code: 502}

	r.Inspect(context.Background(), run)

	assert.Equal(t, 502, run.BillingFailure.Code)
}

func TestRecovery_Decommission(t *testing.T) {
	r, _, _ := newRecovery(t)

	early := staleRun(1, workflow.KindDecommission, workflow.StateTenantDecommissioning)
	require.True(t, r.Inspect(context.Background(), early))
	assert.Equal(t, workflow.StateDone, early.State)
	assert.Equal(t, workflow.OutcomeUnknown, early.TenantOutcome)
	assert.Equal(t, workflow.OutcomeFailed, early.BillingOutcome)
	assert.Equal(t, workflow.FailureInterrupted, early.BillingFailure.Kind)

	late := staleRun(2, workflow.KindDecommission, workflow.StateBillingStopping)
	late.TenantOutcome = workflow.OutcomeSucceeded
	require.True(t, r.Inspect(context.Background(), late))
	assert.Equal(t, workflow.OutcomeSucceeded, late.TenantOutcome)
	assert.Nil(t, late.TenantFailure)
	assert.Equal(t, workflow.OutcomeUnknown, late.BillingOutcome)
}

func TestRecovery_LeavesFreshAndFinishedRuns(t *testing.T) {
	r, runs, _ := newRecovery(t)

	fresh := staleRun(1, workflow.KindTierChange, workflow.StateBillingUpdating)
	fresh.UpdatedAt = time.Now()
	assert.False(t, r.Inspect(context.Background(), fresh))
	assert.Equal(t, workflow.StateBillingUpdating, fresh.State)

	done := staleRun(2, workflow.KindTierChange, workflow.StateDone)
	done.Status = workflow.StatusApplied
	assert.False(t, r.Inspect(context.Background(), done))

	assert.Empty(t, runs.States)
}

func TestRecovery_Sweep(t *testing.T) {
	r, runs, m := newRecovery(t)
	runs.Put(staleRun(1, workflow.KindTierChange, workflow.StateBillingCheck))
	runs.Put(staleRun(2, workflow.KindTierChange, workflow.StateTenantUpdating))
	fresh := staleRun(3, workflow.KindTierChange, workflow.StateTenantUpdating)
	fresh.UpdatedAt = time.Now()
	runs.Put(fresh)

	n, err := r.Sweep(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	count, err := runs.CountByStatus(context.Background(), workflow.StatusBillingFailedAfterTenantUpdate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecoveredRuns.WithLabelValues("tier_change", "billing_check")))

	n, err = r.Sweep(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
