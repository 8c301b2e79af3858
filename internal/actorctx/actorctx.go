// Package actorctx carries the verified session of the caller on a
// request context.
package actorctx

import (
	"context"

	"github.com/geocoder89/sitecms/internal/auth"
)

type ctxKey struct{}

func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Claims)

	return c, ok && c != nil
}

func UserIDFrom(ctx context.Context) (string, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, c.UserID != ""
}
