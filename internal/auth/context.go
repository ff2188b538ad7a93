package auth

import "context"

type ctxKey int

const principalKey ctxKey = iota

// ContextWithPrincipal returns a copy of ctx carrying p. A principal without
// a user is not attached.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	if p.User == nil {
		return ctx
	}
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller attached by the authentication
// middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
