package tenancy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/correlation"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
)

// DecommissionRequest identifies the tenant to shut down.
type DecommissionRequest struct {
	OrganizationID string
	TenantID       int64
	Operator       string
}

// DecommissionUseCase deactivates the tenant and stops its subscription.
// Both legs are always attempted, in order, and reported separately.
type DecommissionUseCase struct {
	tenants tenant.Mutator
	billing billing.Reconciler
	ids     IDGenerator
	steps   *steps
}

func NewDecommissionUseCase(
	tenants tenant.Mutator,
	reconciler billing.Reconciler,
	runs workflow.Repository,
	ids IDGenerator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DecommissionUseCase {
	return &DecommissionUseCase{
		tenants: tenants,
		billing: reconciler,
		ids:     ids,
		steps: &steps{
			runs:    runs,
			metrics: m,
			log:     logger.Named("decommission"),
		},
	}
}

func (uc *DecommissionUseCase) Run(ctx context.Context, req DecommissionRequest) (*workflow.DecommissionResult, error) {
	if strings.TrimSpace(req.OrganizationID) == "" || req.TenantID <= 0 {
		return nil, fmt.Errorf("%w: organization_id and tenant_id are required", workflow.ErrInvalidRequest)
	}

	ctx, cid := correlation.EnsureCorrelationID(context.WithoutCancel(ctx))

	run := workflow.NewRun(uc.ids.GenerateID(), workflow.KindDecommission, cid)
	run.OrganizationID = req.OrganizationID
	run.TenantID = req.TenantID
	run.Operator = req.Operator
	if err := uc.steps.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	s := uc.steps
	s.log.Info("decommission_started", append(runFields(run), zap.String("operator", run.Operator))...)

	s.advance(ctx, run, workflow.StateTenantDecommissioning)
	if err := uc.tenants.Decommission(ctx, run.TenantID); err != nil {
		run.TenantFailure = tenantFailure(err)
		run.TenantOutcome = workflow.OutcomeFailed
		if tenant.IsTimeout(err) {
			run.TenantOutcome = workflow.OutcomeUnknown
		}
		s.log.Error("decommission_tenant_failed", append(runFields(run),
			zap.String("outcome", string(run.TenantOutcome)),
			zap.Error(err),
		)...)
	} else {
		run.TenantOutcome = workflow.OutcomeSucceeded
	}
	s.metrics.RecordCall(string(workflow.ServiceTenant), "decommission", string(run.TenantOutcome))

	// Not gated on the tenant leg.
	s.advance(ctx, run, workflow.StateBillingStopping)
	if err := uc.billing.StopSubscription(ctx, run.OrganizationID, run.TenantID); err != nil {
		run.BillingFailure = billingFailure(err)
		run.BillingOutcome = workflow.OutcomeFailed
		if billing.KindOf(err) == billing.KindTimeout {
			run.BillingOutcome = workflow.OutcomeUnknown
		}
		s.log.Error("decommission_billing_failed", append(runFields(run),
			zap.String("outcome", string(run.BillingOutcome)),
			zap.Error(err),
		)...)
	} else {
		run.BillingOutcome = workflow.OutcomeSucceeded
	}
	s.metrics.RecordCall(string(workflow.ServiceBilling), "stop_subscription", string(run.BillingOutcome))

	s.advance(ctx, run, workflow.StateDone)

	res := run.DecommissionResult()
	s.metrics.RecordRun(string(workflow.KindDecommission), decommissionLabel(res))
	s.log.Info("decommission_finished", append(runFields(run),
		zap.String("tenant_outcome", string(res.TenantResult.Outcome)),
		zap.String("billing_outcome", string(res.BillingResult.Outcome)),
	)...)
	return res, nil
}

func decommissionLabel(res *workflow.DecommissionResult) string {
	if res.Complete() {
		return "complete"
	}
	return "tenant_" + string(res.TenantResult.Outcome) + "_billing_" + string(res.BillingResult.Outcome)
}
