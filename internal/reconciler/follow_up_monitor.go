package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
)

// Sweeper closes interrupted runs from their persisted state.
type Sweeper interface {
	Sweep(ctx context.Context, limit int) (int, error)
}

const sweepBatch = 100

// FollowUpMonitor periodically surfaces runs that need an operator. Stale
// interrupted runs are closed first so they are counted under the status
// they read as. It never re-issues a backend call.
type FollowUpMonitor struct {
	repo       workflow.Repository
	sweeper    Sweeper
	metrics    *metrics.Metrics
	logger     *zap.Logger
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewFollowUpMonitor(repo workflow.Repository, sweeper Sweeper, m *metrics.Metrics, logger *zap.Logger, interval, staleAfter time.Duration) *FollowUpMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &FollowUpMonitor{
		repo:       repo,
		sweeper:    sweeper,
		metrics:    m,
		logger:     logger.Named("follow_up.monitor"),
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (r *FollowUpMonitor) Run(ctx context.Context) {
	if err := r.scan(ctx); err != nil {
		r.logger.Error("follow_up_scan_initial_failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.scan(ctx); err != nil {
				r.logger.Error("follow_up_scan_failed", zap.Error(err))
			}
		}
	}
}

func (r *FollowUpMonitor) scan(ctx context.Context) error {
	recovered, err := r.sweeper.Sweep(ctx, sweepBatch)
	if err != nil {
		return err
	}
	if recovered > 0 {
		r.logger.Warn("runs_recovered", zap.Int("count", recovered))
	}

	statuses := []workflow.Status{
		workflow.StatusBillingFailedAfterTenantUpdate,
		workflow.StatusTenantUpdateOutcomeUnknown,
	}
	for _, status := range statuses {
		n, err := r.repo.CountByStatus(ctx, status)
		if err != nil {
			return err
		}
		r.metrics.AwaitingFollowUp.WithLabelValues(string(status)).Set(float64(n))
		if n > 0 {
			r.logger.Warn("runs_awaiting_follow_up",
				zap.String("status", string(status)),
				zap.Int64("count", n),
			)
		}
	}

	stale, err := r.repo.CountStale(ctx, r.now().Add(-r.staleAfter))
	if err != nil {
		return err
	}
	r.metrics.StaleRuns.Set(float64(stale))
	if stale > 0 {
		r.logger.Warn("runs_stale",
			zap.Int64("count", stale),
			zap.Duration("stale_after", r.staleAfter),
		)
	}
	return nil
}
