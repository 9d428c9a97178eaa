package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/railzwaylabs/tier-orchestrator/internal/auth"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/internal/usecase/tenancy"
)

type tierChangeRequest struct {
	ApplicationID    int64   `json:"app_id"`
	CurrentProductID string  `json:"current_product_id"`
	TargetProductID  string  `json:"target_product_id"`
	TargetPriceID    *string `json:"target_price_id"`
}

// ChangeTier runs a tier change. Every attempted run answers 200 with its
// terminal status in the body.
func (r *Router) ChangeTier(c *gin.Context) {
	tenantID, ok := pathID(c, "tenant_id")
	if !ok {
		return
	}

	var body tierChangeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	res, err := r.tierChangeUC.Run(c.Request.Context(), workflow.TierChangeRequest{
		OrganizationID:   c.Param("org_id"),
		TenantID:         tenantID,
		ApplicationID:    body.ApplicationID,
		CurrentProductID: body.CurrentProductID,
		TargetProductID:  body.TargetProductID,
		TargetPriceID:    body.TargetPriceID,
		IdempotencyKey:   strings.TrimSpace(c.GetHeader("Idempotency-Key")),
		Operator:         auth.Operator(c),
	})
	if err != nil {
		r.respondError(c, err)
		return
	}

	var tenantFailure *workflow.Failure
	if res.Failure != nil && res.Failure.Service == workflow.ServiceTenant {
		tenantFailure = res.Failure
	}
	respondRun(c, res, tenantFailure)
}

func (r *Router) DecommissionTenant(c *gin.Context) {
	tenantID, ok := pathID(c, "tenant_id")
	if !ok {
		return
	}

	res, err := r.decommissionUC.Run(c.Request.Context(), tenancy.DecommissionRequest{
		OrganizationID: c.Param("org_id"),
		TenantID:       tenantID,
		Operator:       auth.Operator(c),
	})
	if err != nil {
		r.respondError(c, err)
		return
	}
	respondRun(c, res, res.TenantResult.Failure, res.BillingResult.Failure)
}
