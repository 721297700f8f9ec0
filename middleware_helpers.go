package credentials

import (
	"context"

	"github.com/goliatone/go-credentials/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use the
// credentials helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores verified access claims in the standard
// context for downstream use.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	accessClaims, ok := claims.(*AccessClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, accessClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
