package authhttp

import (
	"context"
	"errors"
)

// Claims is a typed view of the session attached by Required.
type Claims struct {
	UserID    string
	Address   string
	ChainID   uint64
	SessionID string
}

type claimsCtxKey struct{}

func setClaims(ctx context.Context, cl Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, cl)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	v := ctx.Value(claimsCtxKey{})
	if v == nil {
		return Claims{}, false
	}
	cl, ok := v.(Claims)
	return cl, ok
}

func getClaims(ctx context.Context) (Claims, error) {
	if cl, ok := ClaimsFromContext(ctx); ok && cl.UserID != "" {
		return cl, nil
	}
	return Claims{}, errors.New("unauthenticated")
}
