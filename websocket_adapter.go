package credentials

import (
	"context"

	"github.com/goliatone/go-router"
)

// WSTokenValidator implements go-router's WSTokenValidator interface on top
// of the access token codec, so WebSocket upgrades authenticate with the same
// tokens as plain routes.
type WSTokenValidator struct {
	issuer *SessionIssuer
}

// NewWSTokenValidator creates a new WebSocket token validator
func NewWSTokenValidator(issuer *SessionIssuer) *WSTokenValidator {
	return &WSTokenValidator{issuer: issuer}
}

// Validate validates a token string and returns WebSocket-compatible auth claims
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	claims, err := w.issuer.VerifyAccess(tokenString)
	if err != nil {
		return nil, err
	}
	return &WSAuthClaimsAdapter{claims: claims}, nil
}

// WSAuthClaimsAdapter adapts AccessClaims to go-router's WSAuthClaims
// interface. Resource arguments are ignored: permissions derive from the
// strongest embedded role alone.
type WSAuthClaimsAdapter struct {
	claims *AccessClaims
}

// Subject returns the subject claim
func (w *WSAuthClaimsAdapter) Subject() string {
	return w.claims.Subject()
}

// UserID returns the account id
func (w *WSAuthClaimsAdapter) UserID() string {
	return w.claims.UserID()
}

// Role returns the account's strongest role
func (w *WSAuthClaimsAdapter) Role() string {
	return HighestRole(w.claims.Roles())
}

// CanRead checks if the account can read a specific resource
func (w *WSAuthClaimsAdapter) CanRead(resource string) bool {
	return RoleCanRead(w.Role())
}

// CanEdit checks if the account can edit a specific resource
func (w *WSAuthClaimsAdapter) CanEdit(resource string) bool {
	return RoleCanEdit(w.Role())
}

// CanCreate checks if the account can create a specific resource
func (w *WSAuthClaimsAdapter) CanCreate(resource string) bool {
	return RoleCanCreate(w.Role())
}

// CanDelete checks if the account can delete a specific resource
func (w *WSAuthClaimsAdapter) CanDelete(resource string) bool {
	return RoleCanDelete(w.Role())
}

// HasRole checks if the account has a specific role
func (w *WSAuthClaimsAdapter) HasRole(role string) bool {
	return w.claims.HasRole(role)
}

// IsAtLeast checks if the account's role is at least the minimum required role
func (w *WSAuthClaimsAdapter) IsAtLeast(minRole string) bool {
	return w.claims.IsAtLeast(minRole)
}

// NewWSAuthMiddleware creates a fully configured WebSocket authentication
// middleware backed by the issuer's access codec.
func (s *SessionIssuer) NewWSAuthMiddleware(config ...router.WSAuthConfig) router.WebSocketMiddleware {
	validator := NewWSTokenValidator(s)

	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	// Always set our token validator
	cfg.TokenValidator = validator

	return router.NewWSAuth(cfg)
}

// WSAuthClaimsFromContext retrieves the access claims stored by the WebSocket
// auth middleware.
func WSAuthClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	wsAuthClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}

	if adapter, ok := wsAuthClaims.(*WSAuthClaimsAdapter); ok {
		return adapter.claims, true
	}

	return nil, false
}
