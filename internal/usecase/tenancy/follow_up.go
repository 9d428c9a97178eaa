package tenancy

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/correlation"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
)

// FollowUpUseCase lets an operator inspect runs and re-issue the billing leg
// of a tier change whose billing step failed. Nothing here runs on its own.
type FollowUpUseCase struct {
	billing  billing.Reconciler
	cache    workflow.ResultCache
	recovery *Recovery
	steps    *steps

	mu       sync.Mutex
	inflight map[int64]struct{}
}

func NewFollowUpUseCase(
	reconciler billing.Reconciler,
	runs workflow.Repository,
	cache workflow.ResultCache,
	recovery *Recovery,
	m *metrics.Metrics,
	logger *zap.Logger,
) *FollowUpUseCase {
	return &FollowUpUseCase{
		billing:  reconciler,
		cache:    cache,
		recovery: recovery,
		steps: &steps{
			runs:    runs,
			metrics: m,
			log:     logger.Named("follow_up"),
		},
		inflight: make(map[int64]struct{}),
	}
}

// List returns runs with any of the statuses, oldest first. No statuses
// means every run needing follow-up. Stale interrupted runs are closed
// first so they are listed under the status they now read as.
func (uc *FollowUpUseCase) List(ctx context.Context, statuses []workflow.Status, limit int) ([]*workflow.Run, error) {
	if len(statuses) == 0 {
		statuses = []workflow.Status{
			workflow.StatusBillingFailedAfterTenantUpdate,
			workflow.StatusTenantUpdateOutcomeUnknown,
		}
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if _, err := uc.recovery.Sweep(ctx, limit); err != nil {
		return nil, err
	}
	return uc.steps.runs.ListByStatus(ctx, statuses, limit)
}

// RetryBilling re-issues only the billing call of a run left in
// billing_failed_after_tenant_update. The tenant is not touched again. A run
// of another organization reads as not found.
func (uc *FollowUpUseCase) RetryBilling(ctx context.Context, organizationID string, runID int64, operator string) (*workflow.TierChangeResult, error) {
	if !uc.acquire(runID) {
		return nil, workflow.ErrRunInProgress
	}
	defer uc.release(runID)

	run, err := uc.steps.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	if run == nil || run.OrganizationID != organizationID {
		return nil, workflow.ErrRunNotFound
	}
	uc.recovery.Inspect(ctx, run)
	if run.Kind != workflow.KindTierChange || run.Status != workflow.StatusBillingFailedAfterTenantUpdate || run.State != workflow.StateDone {
		return nil, workflow.ErrNotRetryable
	}

	ctx = correlation.ContextWithCorrelationID(context.WithoutCancel(ctx), run.CorrelationID)

	s := uc.steps
	s.log.Info("billing_retry_started", append(runFields(run),
		zap.String("operator", operator),
		zap.Int("billing_attempts", run.BillingAttempts),
	)...)

	res := run.TierChangeResult()
	s.applyBilling(ctx, uc.billing, run, res)

	s.metrics.RecordRun(string(workflow.KindTierChange), string(res.Status))
	if run.IdempotencyKey != "" {
		uc.cache.Set(ctx, run.IdempotencyKey, res)
	}

	s.log.Info("billing_retry_finished", append(runFields(run),
		zap.String("status", string(res.Status)),
		zap.String("operator", operator),
	)...)
	return res, nil
}

func (uc *FollowUpUseCase) acquire(runID int64) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, busy := uc.inflight[runID]; busy {
		return false
	}
	uc.inflight[runID] = struct{}{}
	return true
}

func (uc *FollowUpUseCase) release(runID int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.inflight, runID)
}
