package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what a TokenCodec can mint: registered JWT claims plus the
// class-specific payload.
type TokenClaims interface {
	jwt.Claims
	Registered() *jwt.RegisteredClaims
}

// ActivationClaims is the payload of a pending-action token. Signup tokens
// carry a Draft; password-reset tokens carry only the account's Email. Code is
// the short out-of-band code the user must type back.
type ActivationClaims struct {
	jwt.RegisteredClaims
	Draft *AccountDraft `json:"draft,omitempty"`
	Email string        `json:"email,omitempty"`
	Code  string        `json:"code"`
}

// Registered exposes the registered claims for minting.
func (c *ActivationClaims) Registered() *jwt.RegisteredClaims {
	return &c.RegisteredClaims
}

// IsSignup reports whether the token was minted for account activation.
func (c *ActivationClaims) IsSignup() bool {
	return c.Draft != nil
}

// SubjectEmail returns the email the pending action refers to.
func (c *ActivationClaims) SubjectEmail() string {
	if c.Draft != nil {
		return c.Draft.Email
	}
	return c.Email
}

// AccessClaims is the stateless payload of a short-lived access token. It is
// never persisted; protected routes trust signature plus expiry alone.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username  string   `json:"username"`
	UserRoles []string `json:"roles,omitempty"`
}

func (c *AccessClaims) Registered() *jwt.RegisteredClaims {
	return &c.RegisteredClaims
}

// Subject returns the sub claim, the account id.
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account id embedded in the subject claim.
func (c *AccessClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Roles returns the roles embedded at mint time.
func (c *AccessClaims) Roles() []string {
	return c.UserRoles
}

// HasRole checks if the claims carry a specific role.
func (c *AccessClaims) HasRole(role string) bool {
	for _, r := range c.UserRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks if the strongest embedded role meets the minimum level.
func (c *AccessClaims) IsAtLeast(minRole string) bool {
	return RoleIsAtLeast(HighestRole(c.UserRoles), minRole)
}

// Expires returns the embedded expiry, zero when absent.
func (c *AccessClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// RefreshClaims is the payload of a long-lived refresh token. The signed
// string is mirrored verbatim on the account record; a presented token is only
// as valid as that stored copy.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

func (c *RefreshClaims) Registered() *jwt.RegisteredClaims {
	return &c.RegisteredClaims
}
