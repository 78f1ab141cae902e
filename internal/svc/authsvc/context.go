package authsvc

import "context"

type sessionCtxKey struct{}

// Inject puts authenticated session into request context.
func Inject(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// Extract returns session injected by Inject, false when request is not authenticated.
func Extract(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(Session)
	return session, ok
}
