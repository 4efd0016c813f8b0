package httpx

import (
	"context"

	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	"github.com/target/compliance-gate/internal/service"
)

// accessKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type accessKey struct{}

// SetAccessInContext returns a child context that carries the resolved caller.
// If access is nil, the original ctx is returned unchanged.
func SetAccessInContext(ctx context.Context, access *service.Access) context.Context {
	if access == nil {
		return ctx
	}
	return context.WithValue(ctx, accessKey{}, access)
}

// GetAccessFromContext returns the resolved caller and a boolean indicating presence.
func GetAccessFromContext(ctx context.Context) (*service.Access, bool) {
	if a, ok := ctx.Value(accessKey{}).(*service.Access); ok && a != nil {
		return a, true
	}
	return nil, false
}

// SubjectFromContext returns the caller's subject, or nil when the request is anonymous.
func SubjectFromContext(ctx context.Context) *domainauth.Subject {
	if a, ok := GetAccessFromContext(ctx); ok {
		return &a.Subject
	}
	return nil
}
