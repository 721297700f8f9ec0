package credentials

import (
	"time"
)

// SessionTokens is the pair a successful login produces. The access token
// travels in responses and Authorization headers; the refresh token is meant
// for an HTTP only cookie and is the persisted copy the terminator revokes.
type SessionTokens struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"-"`
	Roles            []string  `json:"roles,omitempty"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"-"`
}
