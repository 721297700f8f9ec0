package credentials

import (
	"context"

	"github.com/goliatone/go-router"
)

var accountCtxKey = &contextKey{"account"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the Account in the given context
func WithContext(r context.Context, account *Account) context.Context {
	return context.WithValue(r, accountCtxKey, account)
}

// FromContext finds the account from the context.
func FromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok
}

// WithClaimsContext sets the access claims in the given context
func WithClaimsContext(r context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the access claims from the standard context
func GetClaims(ctx context.Context) (*AccessClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AccessClaims)
	return raw, ok
}

// GetRouterClaims extracts the access claims the JWT middleware stored in the
// router locals.
func GetRouterClaims(ctx router.Context, key string) (*AccessClaims, error) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}

	raw := ctx.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(*AccessClaims)
	if !ok || claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	return claims, nil
}

// HasRouterRole checks a role directly from the router context.
func HasRouterRole(ctx router.Context, key, role string) bool {
	claims, err := GetRouterClaims(ctx, key)
	if err != nil {
		return false
	}
	return claims.HasRole(role)
}
