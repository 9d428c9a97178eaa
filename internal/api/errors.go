package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
)

func (r *Router) respondError(c *gin.Context, err error) {
	var tenantErr *tenant.ServiceError

	switch {
	case errors.Is(err, workflow.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, workflow.ErrIdempotencyKeyMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency_key_mismatch", "message": err.Error()})
	case errors.Is(err, workflow.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "run_in_progress"})
	case errors.Is(err, workflow.ErrNotRetryable):
		c.JSON(http.StatusConflict, gin.H{"error": "not_retryable"})
	case errors.Is(err, workflow.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run_not_found"})
	case errors.Is(err, credential.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "reauthenticate": true})
	case errors.As(err, &tenantErr):
		switch tenantErr.Kind {
		case tenant.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		case tenant.KindTimeout:
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "tenant_service_timeout"})
		case tenant.KindUnavailable:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tenant_service_unavailable"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "tenant_service_error", "message": tenantErr.Message})
		}
	default:
		r.logger.Error("request_failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// respondRun writes a finished run. A rejected operator credential turns
// into 401 so the caller re-authenticates; the result is still included.
func respondRun(c *gin.Context, result interface{}, failures ...*workflow.Failure) {
	for _, f := range failures {
		if f != nil && f.Kind == string(tenant.KindUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":          "unauthorized",
				"reauthenticate": true,
				"result":         result,
			})
			return
		}
	}
	c.JSON(http.StatusOK, result)
}
