package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/railzwaylabs/tier-orchestrator/internal/auth"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
)

// ListRuns lists runs by status; no status means every run awaiting follow-up.
func (r *Router) ListRuns(c *gin.Context) {
	var statuses []workflow.Status
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if s := strings.TrimSpace(raw); s != "" {
			statuses = append(statuses, workflow.Status(s))
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	runs, err := r.followUpUC.List(c.Request.Context(), statuses, limit)
	if err != nil {
		r.respondError(c, err)
		return
	}
	if runs == nil {
		runs = []*workflow.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// RetryBilling re-issues the billing leg of a run left in
// billing_failed_after_tenant_update.
func (r *Router) RetryBilling(c *gin.Context) {
	runID, ok := pathID(c, "run_id")
	if !ok {
		return
	}

	res, err := r.followUpUC.RetryBilling(c.Request.Context(), c.Param("org_id"), runID, auth.Operator(c))
	if err != nil {
		r.respondError(c, err)
		return
	}
	respondRun(c, res, res.Failure)
}
