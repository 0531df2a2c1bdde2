package httpx

import "context"

type ctxKey string

// CtxKeyUserID carries the authenticated user's id, injected by the session
// middleware and consumed by handlers and the per-user rate limiter.
const CtxKeyUserID ctxKey = "user_id"

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ContextWithUserID attaches a user id for downstream handlers.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}
