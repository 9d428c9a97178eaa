package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tier"
)

type classifyRequest struct {
	Current *catalog.Product `json:"current"`
	Target  *catalog.Product `json:"target"`
}

type classifyResponse struct {
	Classification tier.Classification `json:"classification"`
	ChangeType     string              `json:"change_type"`
	Warning        string              `json:"warning,omitempty"`
}

// ClassifyTier ranks target against current. A null current is a first purchase.
func (r *Router) ClassifyTier(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if req.Target == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "target is required"})
		return
	}

	class := tier.Classify(req.Current, *req.Target)
	c.JSON(http.StatusOK, classifyResponse{
		Classification: class,
		ChangeType:     class.ChangeType(),
		Warning:        class.Warning(),
	})
}

func (r *Router) ListTierOptions(c *gin.Context) {
	tenantID, ok := pathID(c, "tenant_id")
	if !ok {
		return
	}

	var appID int64
	if raw := c.Query("app_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid app_id"})
			return
		}
		appID = parsed
	}

	opts, err := r.optionsUC.List(c.Request.Context(), tenantID, appID)
	if err != nil {
		r.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
