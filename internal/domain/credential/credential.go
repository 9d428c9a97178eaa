// Package credential carries the operator's bearer credential through a
// workflow so downstream calls act on the operator's behalf.
package credential

import (
	"context"
	"errors"
)

// ErrUnauthorized signals that a backend rejected the forwarded credential.
// Callers must invalidate the credential and re-authenticate.
var ErrUnauthorized = errors.New("unauthorized")

type tokenKey struct{}

// WithToken stores the bearer token on the context.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token, if any.
func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}
