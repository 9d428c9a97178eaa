package tenancy

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tier"
)

// ProductOption is a product offered to a tenant, ranked against its
// current product.
type ProductOption struct {
	Product        catalog.Product     `json:"product"`
	Classification tier.Classification `json:"classification"`
	ChangeType     string              `json:"change_type"`
	Warning        string              `json:"warning,omitempty"`
	Current        bool                `json:"current"`
}

// TierOptions is what an operator picks a new tier from.
type TierOptions struct {
	Tenant     *tenant.Tenant `json:"tenant"`
	StatusTone tenant.Tone    `json:"status_tone"`
	IconURL    string         `json:"icon_url"`
	ServingURL string         `json:"serving_url"`

	CurrentProduct   *catalog.Product `json:"current_product,omitempty"`
	CatalogAvailable bool             `json:"catalog_available"`
	Products         []ProductOption  `json:"products"`
}

type OptionsUseCase struct {
	tenants tenant.Reader
	catalog billing.CatalogSource
	log     *zap.Logger
}

func NewOptionsUseCase(tenants tenant.Reader, source billing.CatalogSource, logger *zap.Logger) *OptionsUseCase {
	return &OptionsUseCase{tenants: tenants, catalog: source, log: logger.Named("tier_options")}
}

// List reads the tenant and the catalog of applicationID concurrently. With
// applicationID 0 the tenant's own application is used, which serializes
// the reads. A catalog failure yields an empty product list, never an error.
func (uc *OptionsUseCase) List(ctx context.Context, tenantID, applicationID int64) (*TierOptions, error) {
	var (
		t          *tenant.Tenant
		products   []catalog.Product
		catalogErr error
	)

	if applicationID == 0 {
		got, err := uc.tenants.GetTenant(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("get tenant: %w", err)
		}
		t = got
		products, catalogErr = uc.catalog.FetchCatalog(ctx, t.AppID)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			got, err := uc.tenants.GetTenant(gctx, tenantID)
			if err != nil {
				return fmt.Errorf("get tenant: %w", err)
			}
			t = got
			return nil
		})
		g.Go(func() error {
			products, catalogErr = uc.catalog.FetchCatalog(gctx, applicationID)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := &TierOptions{
		Tenant:           t,
		StatusTone:       t.Status.Tone(),
		IconURL:          t.IconURL(),
		ServingURL:       t.ServingURL(),
		CatalogAvailable: catalogErr == nil,
		Products:         []ProductOption{},
	}
	if catalogErr != nil {
		uc.log.Warn("tier_options_catalog_unavailable", zap.Int64("tenant_id", tenantID), zap.Error(catalogErr))
		return out, nil
	}

	current, _ := catalog.Find(products, t.ProductID)
	out.CurrentProduct = current
	for _, p := range products {
		var c tier.Classification
		if t.ProductID != "" && current == nil {
			c = tier.Incomparable
		} else {
			c = tier.Classify(current, p)
		}
		out.Products = append(out.Products, ProductOption{
			Product:        p,
			Classification: c,
			ChangeType:     c.ChangeType(),
			Warning:        c.Warning(),
			Current:        current != nil && p.ID == current.ID,
		})
	}
	return out, nil
}
