package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/internal/usecase/tenancy"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
	"github.com/railzwaylabs/tier-orchestrator/pkg/testhelper"
)

func putRun(repo *testhelper.MockRunRepository, id int64, state workflow.State, status workflow.Status, updated time.Time) {
	run := workflow.NewRun(id, workflow.KindTierChange, "cid")
	run.State = state
	run.Status = status
	run.UpdatedAt = updated
	repo.Put(run)
}

type noopSweeper struct{ err error }

func (s noopSweeper) Sweep(context.Context, int) (int, error) { return 0, s.err }

func TestFollowUpMonitor_Scan(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := testhelper.NewMockRunRepository()
	putRun(repo, 1, workflow.StateDone, workflow.StatusBillingFailedAfterTenantUpdate, now)
	putRun(repo, 2, workflow.StateDone, workflow.StatusBillingFailedAfterTenantUpdate, now)
	putRun(repo, 3, workflow.StateTenantUpdateUnseen, workflow.StatusTenantUpdateOutcomeUnknown, now)
	putRun(repo, 4, workflow.StateDone, workflow.StatusApplied, now)
	putRun(repo, 5, workflow.StateBillingUpdating, "", now.Add(-time.Hour))
	putRun(repo, 6, workflow.StateTenantUpdating, "", now.Add(-time.Minute))

	m := metrics.New(prometheus.NewRegistry())
	mon := NewFollowUpMonitor(repo, noopSweeper{}, m, zaptest.NewLogger(t), time.Second, 10*time.Minute)
	mon.now = func() time.Time { return now }

	require.NoError(t, mon.scan(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AwaitingFollowUp.WithLabelValues(string(workflow.StatusBillingFailedAfterTenantUpdate))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AwaitingFollowUp.WithLabelValues(string(workflow.StatusTenantUpdateOutcomeUnknown))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleRuns))
}

func TestFollowUpMonitor_ClosesInterruptedRuns(t *testing.T) {
	now := time.Now()
	repo := testhelper.NewMockRunRepository()
	putRun(repo, 1, workflow.StateDone, workflow.StatusBillingFailedAfterTenantUpdate, now)
	putRun(repo, 2, workflow.StateBillingCheck, "", now.Add(-24*time.Hour))
	putRun(repo, 3, workflow.StateTenantUpdating, "", now.Add(-24*time.Hour))
	putRun(repo, 4, workflow.StateTenantUpdating, "", now)

	m := metrics.New(prometheus.NewRegistry())
	recovery := tenancy.NewRecovery(repo, m, zaptest.NewLogger(t), 10*time.Minute)
	mon := NewFollowUpMonitor(repo, recovery, m, zaptest.NewLogger(t), time.Second, 10*time.Minute)

	require.NoError(t, mon.scan(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AwaitingFollowUp.WithLabelValues(string(workflow.StatusBillingFailedAfterTenantUpdate))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AwaitingFollowUp.WithLabelValues(string(workflow.StatusTenantUpdateOutcomeUnknown))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StaleRuns))

	running, err := repo.FindByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateTenantUpdating, running.State)
}

func TestFollowUpMonitor_SweepFailureAbortsScan(t *testing.T) {
	repo := testhelper.NewMockRunRepository()
	mon := NewFollowUpMonitor(repo, noopSweeper{err: errors.New("db down")}, metrics.New(prometheus.NewRegistry()), zaptest.NewLogger(t), time.Second, time.Minute)

	assert.Error(t, mon.scan(context.Background()))
}

func TestFollowUpMonitor_RunStopsOnCancel(t *testing.T) {
	repo := testhelper.NewMockRunRepository()
	mon := NewFollowUpMonitor(repo, noopSweeper{}, metrics.New(prometheus.NewRegistry()), zaptest.NewLogger(t), 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
