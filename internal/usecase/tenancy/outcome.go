package tenancy

import (
	"errors"

	"go.uber.org/zap"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tenant"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
)

// IDGenerator hands out run ids.
type IDGenerator interface {
	GenerateID() int64
}

// Operator-facing messages.
const (
	MessageApplied            = "Please wait for up to 10 minutes for migrating tenant to new infrastructure."
	MessagePendingPayment     = "Product successfully bought. Please resolve payment on Billing."
	MessageBillingFollowUp    = "The tenant's tier was changed, but billing could not be updated. The billing step requires follow-up."
	MessageTenantConflict     = "Another change to this tenant is in progress. Refresh the tenant and try again."
	MessageTenantNotFound     = "The tenant no longer exists."
	MessageTenantFailed       = "The tenant's tier could not be changed. Nothing was billed."
	MessageTenantUnavailable  = "The tenant service is unavailable. Nothing was changed or billed; try again shortly."
	MessageTenantUnknown      = "The tenant service did not answer in time. Check the tenant's product before trying again. Nothing was billed."
	MessageReauthenticate     = "Your session is no longer valid. Sign in again."
	MessageCatalogUnavailable = "The product catalog is unavailable; the change could not be ranked."
)

// Call outcomes recorded in backend call metrics.
const (
	callSucceeded = "succeeded"
	callFailed    = "failed"
	callUnknown   = "unknown"
)

func tenantFailure(err error) *workflow.Failure {
	f := &workflow.Failure{
		Service: workflow.ServiceTenant,
		Kind:    string(tenant.KindOf(err)),
		Message: err.Error(),
	}
	var se *tenant.ServiceError
	if errors.As(err, &se) {
		f.Code = se.Code
		f.Message = se.Message
	}
	return f
}

func billingFailure(err error) *workflow.Failure {
	f := &workflow.Failure{
		Service: workflow.ServiceBilling,
		Kind:    string(billing.KindOf(err)),
		Message: err.Error(),
	}
	var se *billing.ServiceError
	if errors.As(err, &se) {
		f.Code = se.Code
		f.Message = se.Message
	}
	return f
}

func tenantFailureMessage(kind tenant.ErrorKind) string {
	switch kind {
	case tenant.KindConflict:
		return MessageTenantConflict
	case tenant.KindNotFound:
		return MessageTenantNotFound
	case tenant.KindUnauthorized:
		return MessageReauthenticate
	case tenant.KindTimeout:
		return MessageTenantUnknown
	case tenant.KindUnavailable:
		return MessageTenantUnavailable
	default:
		return MessageTenantFailed
	}
}

func runFields(run *workflow.Run) []zap.Field {
	return []zap.Field{
		zap.Int64("run_id", run.ID),
		zap.String("kind", string(run.Kind)),
		zap.String("correlation_id", run.CorrelationID),
		zap.String("organization_id", run.OrganizationID),
		zap.Int64("tenant_id", run.TenantID),
	}
}
