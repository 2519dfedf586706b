package middleware

import (
	"context"

	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxPrincipal contextKey = "principal"
)

// WithPrincipal injects the authenticated caller into the context.
func WithPrincipal(ctx context.Context, p scope.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, p.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(p.Role))
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (scope.Principal, bool) {
	if ctx == nil {
		return scope.Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(scope.Principal)
	return p, ok
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}
