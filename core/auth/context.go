package auth

import (
	"context"

	"vigil-irs/core/store"
)

type ctxKey int

const sessionKey ctxKey = 0

func ContextWithSession(ctx context.Context, sess *store.SessionRecord) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func SessionFromContext(ctx context.Context) *store.SessionRecord {
	sess, _ := ctx.Value(sessionKey).(*store.SessionRecord)
	return sess
}
