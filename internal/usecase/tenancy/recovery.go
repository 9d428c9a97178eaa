package tenancy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
)

const defaultStaleAfter = 15 * time.Minute

// Recovery closes runs that stopped short of a terminal state, as when the
// process dies between two calls. Only the record is rewritten; no backend
// call is repeated. A leg whose call may have been sent reads as unknown or
// failed, and the run then shows up for operator follow-up.
type Recovery struct {
	runs       workflow.Repository
	metrics    *metrics.Metrics
	log        *zap.Logger
	staleAfter time.Duration
	now        func() time.Time
}

func NewRecovery(runs workflow.Repository, m *metrics.Metrics, logger *zap.Logger, staleAfter time.Duration) *Recovery {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Recovery{
		runs:       runs,
		metrics:    m,
		log:        logger.Named("recovery"),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Inspect closes run in place when it is stale and reports whether it did.
func (r *Recovery) Inspect(ctx context.Context, run *workflow.Run) bool {
	if !run.Stale(r.now().Add(-r.staleAfter)) {
		return false
	}

	from, lastUpdate := run.State, run.UpdatedAt
	interrupt(run)
	if err := r.runs.Save(ctx, run); err != nil {
		r.log.Error("run_persist_failed", append(runFields(run),
			zap.String("state", string(run.State)),
			zap.Error(err),
		)...)
	}
	r.metrics.RecoveredRuns.WithLabelValues(string(run.Kind), string(from)).Inc()
	r.log.Warn("run_recovered", append(runFields(run),
		zap.String("from", string(from)),
		zap.String("status", string(run.Status)),
		zap.Time("last_update", lastUpdate),
	)...)
	return true
}

// Sweep closes up to limit stale runs and returns how many it closed.
func (r *Recovery) Sweep(ctx context.Context, limit int) (int, error) {
	stale, err := r.runs.ListStale(ctx, r.now().Add(-r.staleAfter), limit)
	if err != nil {
		return 0, fmt.Errorf("list stale runs: %w", err)
	}
	n := 0
	for _, run := range stale {
		if r.Inspect(ctx, run) {
			n++
		}
	}
	return n, nil
}

// interrupt moves a run to the terminal state its last persisted state
// implies.
func interrupt(run *workflow.Run) {
	now := time.Now().UTC()
	defer func() { run.UpdatedAt = now }()

	if run.Kind == workflow.KindDecommission {
		switch run.State {
		case workflow.StateIdle, workflow.StateTenantDecommissioning:
			run.TenantOutcome = workflow.OutcomeUnknown
			run.TenantFailure = interruptedFailure(workflow.ServiceTenant)
			run.BillingOutcome = workflow.OutcomeFailed
			run.BillingFailure = interruptedFailure(workflow.ServiceBilling)
		case workflow.StateBillingStopping:
			run.BillingOutcome = workflow.OutcomeUnknown
			run.BillingFailure = interruptedFailure(workflow.ServiceBilling)
		}
		run.State = workflow.StateDone
		return
	}

	switch run.State {
	case workflow.StateIdle, workflow.StateTenantUpdating:
		run.State = workflow.StateTenantUpdateUnseen
		run.Status = workflow.StatusTenantUpdateOutcomeUnknown
		run.Message = MessageTenantUnknown
		run.TenantFailure = interruptedFailure(workflow.ServiceTenant)
	case workflow.StateNoBillingNeeded, workflow.StateBillingApplied:
		run.State = workflow.StateDone
		run.Status = workflow.StatusApplied
		run.Message = MessageApplied
	default:
		// billing_check, billing_updating, billing_failed: the tenant holds
		// the new product and billing was not confirmed.
		run.State = workflow.StateDone
		run.Status = workflow.StatusBillingFailedAfterTenantUpdate
		run.Message = MessageBillingFollowUp
		if run.BillingFailure == nil {
			run.BillingFailure = interruptedFailure(workflow.ServiceBilling)
		}
	}
}

func interruptedFailure(service workflow.Service) *workflow.Failure {
	return &workflow.Failure{
		Service: service,
		Kind:    workflow.FailureInterrupted,
		Message: "the run stopped before this call was confirmed",
	}
}
