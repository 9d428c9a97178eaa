package tenant

import (
	"errors"
	"fmt"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
)

// ErrorKind classifies a tenant-management failure.
type ErrorKind string

const (
	KindConflict     ErrorKind = "conflict"
	KindNotFound     ErrorKind = "notfound"
	KindServer       ErrorKind = "server"
	KindTimeout      ErrorKind = "timeout"
	KindUnauthorized ErrorKind = "unauthorized"
	// KindUnavailable means the client refused to send; nothing reached the service.
	KindUnavailable  ErrorKind = "unavailable"
)

// ServiceError is any non-success answer from the tenant-management service.
// A KindTimeout error means the outcome is unknown: the mutation may have
// been applied even though no response was observed.
type ServiceError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tenant service %s (%d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("tenant service %s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	if e.Kind == KindUnauthorized {
		return credential.ErrUnauthorized
	}
	return e.Err
}

// KindOf returns the error kind, or KindServer for foreign errors.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, credential.ErrUnauthorized) {
		return KindUnauthorized
	}
	return KindServer
}

// IsTimeout reports whether err leaves the mutation outcome unknown.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
