package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"

	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/correlation"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a request id and a correlation id. An
// inbound X-Correlation-ID is kept so runs can be traced across services,
// and a W3C traceparent header seeds a remote span.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = correlation.NewID()
		}
		cid := strings.TrimSpace(c.GetHeader(correlation.HeaderName))
		if cid == "" {
			cid = requestID
		}

		ctx := correlation.ContextWithCorrelationID(c.Request.Context(), cid)
		ctx = propagation.TraceContext{}.Extract(ctx, propagation.HeaderCarrier(c.Request.Header))
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Set("correlation_id", cid)
		c.Header(requestIDHeader, requestID)
		c.Header(correlation.HeaderName, cid)
		c.Next()
	}
}
