package httpx

import (
	"context"

	"github.com/simpleviewinc/sv-auth-client/pkg/authclient"
)

type ctxKey string

const (
	ctxKeyUser  ctxKey = "user"
	ctxKeyToken ctxKey = "token"
)

// WithUser stores the resolved user and its bearer token on the context.
func WithUser(ctx context.Context, user *authclient.User, token string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUser, user)
	return context.WithValue(ctx, ctxKeyToken, token)
}

// UserFromContext returns the user injected by ResolveUser, or nil.
func UserFromContext(ctx context.Context) *authclient.User {
	user, _ := ctx.Value(ctxKeyUser).(*authclient.User)
	return user
}

// TokenFromContext returns the bearer token injected by ResolveUser.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(ctxKeyToken).(string)
	return token
}
