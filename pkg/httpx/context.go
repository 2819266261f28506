package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyUsername ctxKey = "username"
)

// WithCaller records the authenticated caller on the context.
func WithCaller(ctx context.Context, userID int64, username string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	return context.WithValue(ctx, CtxKeyUsername, username)
}

// CallerFromContext returns the authenticated caller, if any. Share
// endpoints allow anonymous callers, so absence is not an error.
func CallerFromContext(ctx context.Context) (userID int64, username string, ok bool) {
	userID, ok = ctx.Value(CtxKeyUserID).(int64)
	if !ok {
		return 0, "", false
	}
	username, _ = ctx.Value(CtxKeyUsername).(string)
	return userID, username, true
}
