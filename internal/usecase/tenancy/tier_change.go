package tenancy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tier"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/correlation"
	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/metrics"
)

// TierChangeUseCase changes a tenant's product and then, when the product is
// billed, the tenant's subscription. The billing call is gated on the tenant
// change and is never made speculatively.
type TierChangeUseCase struct {
	tenants  tenant.Mutator
	billing  billing.Reconciler
	catalog  billing.CatalogSource
	cache    workflow.ResultCache
	recovery *Recovery
	ids      IDGenerator
	steps    *steps
}

func NewTierChangeUseCase(
	tenants tenant.Mutator,
	reconciler billing.Reconciler,
	source billing.CatalogSource,
	runs workflow.Repository,
	cache workflow.ResultCache,
	recovery *Recovery,
	ids IDGenerator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TierChangeUseCase {
	return &TierChangeUseCase{
		tenants:  tenants,
		billing:  reconciler,
		catalog:  source,
		cache:    cache,
		recovery: recovery,
		ids:      ids,
		steps: &steps{
			runs:    runs,
			metrics: m,
			log:     logger.Named("tier_change"),
		},
	}
}

// plan is what a run will send downstream, resolved from the catalog.
type plan struct {
	classification tier.Classification
	priceID        *string
	warnings       []string
}

// Run executes one tier change. Domain failures are reported in the result;
// the error return is reserved for requests that were never attempted.
func (uc *TierChangeUseCase) Run(ctx context.Context, req workflow.TierChangeRequest) (*workflow.TierChangeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if res, err := uc.replay(ctx, req); res != nil || err != nil {
			return res, err
		}
	}

	// The operator may go away; the mutation must not.
	ctx, cid := correlation.EnsureCorrelationID(context.WithoutCancel(ctx))

	p, err := uc.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	run := workflow.NewRun(uc.ids.GenerateID(), workflow.KindTierChange, cid)
	run.IdempotencyKey = req.IdempotencyKey
	run.OrganizationID = req.OrganizationID
	run.TenantID = req.TenantID
	run.ApplicationID = req.ApplicationID
	run.TargetProductID = req.TargetProductID
	run.TargetPriceID = p.priceID
	run.Classification = p.classification
	run.ChangeType = p.classification.ChangeType()
	run.Warnings = p.warnings
	run.Operator = req.Operator

	if err := uc.steps.runs.Create(ctx, run); err != nil {
		if errors.Is(err, workflow.ErrDuplicateIdempotencyKey) {
			if res, rerr := uc.replay(ctx, req); res != nil || rerr != nil {
				return res, rerr
			}
			return nil, workflow.ErrRunInProgress
		}
		return nil, fmt.Errorf("create run: %w", err)
	}

	log := uc.steps.log
	log.Info("tier_change_started", append(runFields(run),
		zap.String("target_product_id", run.TargetProductID),
		zap.String("classification", string(run.Classification)),
		zap.String("change_type", run.ChangeType),
		zap.String("operator", run.Operator),
	)...)

	res := &workflow.TierChangeResult{
		RunID:           run.ID,
		OrganizationID:  run.OrganizationID,
		TenantID:        run.TenantID,
		TargetProductID: run.TargetProductID,
		TargetPriceID:   run.TargetPriceID,
		Classification:  run.Classification,
		ChangeType:      run.ChangeType,
		Warnings:        run.Warnings,
	}

	uc.execute(ctx, run, res)

	uc.steps.metrics.RecordRun(string(workflow.KindTierChange), string(res.Status))
	if run.IdempotencyKey != "" {
		uc.cache.Set(ctx, run.IdempotencyKey, res)
	}

	log.Info("tier_change_finished", append(runFields(run),
		zap.String("status", string(res.Status)),
		zap.Bool("requires_follow_up", res.Status.RequiresFollowUp()),
		zap.Bool("tenant_record_changed", res.Status.TenantRecordChanged()),
	)...)
	return res, nil
}

func (uc *TierChangeUseCase) execute(ctx context.Context, run *workflow.Run, res *workflow.TierChangeResult) {
	s := uc.steps

	s.advance(ctx, run, workflow.StateTenantUpdating)
	outcome, err := uc.tenants.ChangeTier(ctx, run.TenantID, run.TargetProductID)
	if err != nil {
		res.Failure = tenantFailure(err)
		res.Message = tenantFailureMessage(tenant.KindOf(err))

		if tenant.IsTimeout(err) {
			s.metrics.RecordCall(string(workflow.ServiceTenant), "change_tier", callUnknown)
			res.Status = workflow.StatusTenantUpdateOutcomeUnknown
			s.conclude(ctx, run, workflow.StateTenantUpdateUnseen, res)
			s.log.Warn("tier_change_tenant_update_unknown", append(runFields(run), zap.Error(err))...)
			return
		}

		s.metrics.RecordCall(string(workflow.ServiceTenant), "change_tier", callFailed)
		res.Status = workflow.StatusTenantUpdateFailed
		s.conclude(ctx, run, workflow.StateTenantUpdateFailed, res)
		s.log.Warn("tier_change_tenant_update_failed", append(runFields(run),
			zap.String("failure_kind", res.Failure.Kind),
			zap.Error(err),
		)...)
		return
	}
	s.metrics.RecordCall(string(workflow.ServiceTenant), "change_tier", callSucceeded)

	s.advance(ctx, run, workflow.StateBillingCheck)
	if !outcome.UsesBilling {
		s.advance(ctx, run, workflow.StateNoBillingNeeded)
		res.Status = workflow.StatusApplied
		res.Message = MessageApplied
		s.conclude(ctx, run, workflow.StateDone, res)
		return
	}

	s.applyBilling(ctx, uc.billing, run, res)
}

// replay returns the stored result for the run holding the request's key.
// The key only ever answers the request it was issued for. A run that
// stopped midway is closed from its last persisted state once stale;
// until then it is reported as in progress.
func (uc *TierChangeUseCase) replay(ctx context.Context, req workflow.TierChangeRequest) (*workflow.TierChangeResult, error) {
	res, ok := uc.cache.Get(ctx, req.IdempotencyKey)
	if !ok {
		run, err := uc.steps.runs.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("find run: %w", err)
		}
		if run == nil {
			return nil, nil
		}
		if !req.Matches(run.TierChangeResult()) {
			return nil, uc.keyMismatch(req, run.ID)
		}
		uc.recovery.Inspect(ctx, run)
		if !run.Finished() {
			return nil, workflow.ErrRunInProgress
		}
		res = run.TierChangeResult()
		uc.cache.Set(ctx, req.IdempotencyKey, res)
	}

	if !req.Matches(res) {
		return nil, uc.keyMismatch(req, res.RunID)
	}
	res.Replayed = true
	return res, nil
}

func (uc *TierChangeUseCase) keyMismatch(req workflow.TierChangeRequest, runID int64) error {
	uc.steps.log.Warn("tier_change_idempotency_key_mismatch",
		zap.Int64("run_id", runID),
		zap.String("organization_id", req.OrganizationID),
		zap.Int64("tenant_id", req.TenantID),
		zap.String("target_product_id", req.TargetProductID),
	)
	return workflow.ErrIdempotencyKeyMismatch
}

// resolve classifies the change against a fresh catalog read. An unreadable
// catalog never blocks the change; it only makes it unranked.
func (uc *TierChangeUseCase) resolve(ctx context.Context, req workflow.TierChangeRequest) (plan, error) {
	products, err := uc.catalog.FetchCatalog(ctx, req.ApplicationID)
	if err != nil {
		uc.steps.log.Warn("tier_change_catalog_unavailable",
			zap.Int64("tenant_id", req.TenantID),
			zap.Int64("app_id", req.ApplicationID),
			zap.Error(err),
		)
		uc.steps.metrics.RecordCall(string(workflow.ServiceCatalog), "fetch_catalog", callFailed)
		return plan{
			classification: tier.Incomparable,
			priceID:        req.TargetPriceID,
			warnings:       []string{MessageCatalogUnavailable, tier.Incomparable.Warning()},
		}, nil
	}
	uc.steps.metrics.RecordCall(string(workflow.ServiceCatalog), "fetch_catalog", callSucceeded)

	target, ok := catalog.Find(products, req.TargetProductID)
	if !ok {
		return plan{}, fmt.Errorf("%w: product %q is not offered for app %d", workflow.ErrInvalidRequest, req.TargetProductID, req.ApplicationID)
	}

	p := plan{priceID: req.TargetPriceID}
	switch {
	case p.priceID == nil:
		if price := target.DefaultPrice(); price != nil {
			p.priceID = price.ID
		}
	default:
		if _, ok := target.PriceByID(*p.priceID); !ok {
			return plan{}, fmt.Errorf("%w: price %q does not belong to product %q", workflow.ErrInvalidRequest, *p.priceID, target.ID)
		}
	}

	var current *catalog.Product
	if req.CurrentProductID != "" {
		found, ok := catalog.Find(products, req.CurrentProductID)
		if !ok {
			p.classification = tier.Incomparable
			p.warnings = append(p.warnings,
				fmt.Sprintf("current product %q is not in the catalog", req.CurrentProductID),
				tier.Incomparable.Warning(),
			)
			return p, nil
		}
		current = found
	}

	p.classification = tier.Classify(current, *target)
	if w := p.classification.Warning(); w != "" {
		p.warnings = append(p.warnings, w)
	}
	return p, nil
}
