package billing

import (
	"errors"
	"fmt"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
)

// ErrorKind classifies a billing failure.
type ErrorKind string

const (
	KindServer       ErrorKind = "server"
	KindTimeout      ErrorKind = "timeout"
	KindRejected     ErrorKind = "rejected"
	KindUnauthorized ErrorKind = "unauthorized"
	// KindUnavailable means the client refused to send; nothing reached the service.
	KindUnavailable  ErrorKind = "unavailable"
)

// ServiceError is any non-success answer from the billing service. Every
// kind, timeout included, is handled as a failure: a billing call is never
// assumed to have succeeded on an ambiguous outcome.
type ServiceError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("billing service %s (%d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("billing service %s: %s", e.Kind, e.Message)
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
