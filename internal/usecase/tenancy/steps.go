package tenancy

import (
	"context"

	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
)

// steps moves runs through their state machine. Each transition is
// persisted before the next outbound call so an interrupted run can be
// inspected. A failed write is logged and the run carries on: the backend
// calls, not the audit record, are the source of truth.
type steps struct {
	runs    workflow.Repository
	metrics *metrics.Metrics
	log     *zap.Logger
}

func (s *steps) advance(ctx context.Context, run *workflow.Run, next workflow.State) {
	s.move(run, next)
	s.persist(ctx, run)
}

// conclude moves a tier change into a terminal state and records res in the
// same write, so a stored terminal run always carries its outcome.
func (s *steps) conclude(ctx context.Context, run *workflow.Run, next workflow.State, res *workflow.TierChangeResult) {
	s.move(run, next)
	run.Complete(res)
	s.persist(ctx, run)
}

func (s *steps) move(run *workflow.Run, next workflow.State) {
	from := run.State
	if err := run.Transition(next); err != nil {
		s.log.Error("run_invalid_transition", append(runFields(run), zap.Error(err))...)
		run.State = next
	}
	s.log.Debug("run_transition", append(runFields(run),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)...)
}

func (s *steps) persist(ctx context.Context, run *workflow.Run) {
	if err := s.runs.Save(ctx, run); err != nil {
		s.log.Error("run_persist_failed", append(runFields(run),
			zap.String("state", string(run.State)),
			zap.Error(err),
		)...)
	}
}

// applyBilling runs the billing leg of a tier change. The run must be in
// billing_check, or done when an operator retries the leg.
func (s *steps) applyBilling(ctx context.Context, reconciler billing.Reconciler, run *workflow.Run, res *workflow.TierChangeResult) {
	s.advance(ctx, run, workflow.StateBillingUpdating)
	run.BillingAttempts++

	outcome, err := reconciler.ApplyTierChange(ctx, run.OrganizationID, run.TenantID, run.TargetPriceID, run.ChangeType)
	if err != nil {
		// A timeout is a failure too: the charge may or may not exist, and
		// only an operator can find out.
		s.metrics.RecordCall(string(workflow.ServiceBilling), "apply_tier_change", callFailed)
		s.advance(ctx, run, workflow.StateBillingFailed)

		res.Status = workflow.StatusBillingFailedAfterTenantUpdate
		res.Failure = billingFailure(err)
		res.Message = MessageBillingFollowUp
		s.conclude(ctx, run, workflow.StateDone, res)
		s.log.Error("tier_change_billing_failed", append(runFields(run),
			zap.String("failure_kind", res.Failure.Kind),
			zap.Int("billing_attempts", run.BillingAttempts),
			zap.Error(err),
		)...)
		return
	}

	s.metrics.RecordCall(string(workflow.ServiceBilling), "apply_tier_change", callSucceeded)
	s.advance(ctx, run, workflow.StateBillingApplied)

	res.Failure = nil
	if outcome.PendingPayment() {
		res.Status = workflow.StatusAppliedPendingPayment
		res.RedirectURL = outcome.RedirectURL
		res.Message = MessagePendingPayment
	} else {
		res.Status = workflow.StatusApplied
		res.RedirectURL = ""
		res.Message = MessageApplied
	}
	s.conclude(ctx, run, workflow.StateDone, res)
	s.log.Info("tier_change_billing_applied", append(runFields(run),
		zap.String("status", string(res.Status)),
		zap.Bool("pending_payment", outcome.PendingPayment()),
	)...)
}
