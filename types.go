package credentials

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Roles() []string
}

// Issuer mints a session (access + refresh token pair) for verified credentials
type Issuer interface {
	Login(ctx context.Context, identifier, password string) (*SessionTokens, error)
}

// Terminator revokes the session bound to a presented refresh token
type Terminator interface {
	Logout(ctx context.Context, presentedRefreshToken string) error
}

// LoginPayload is what the HTTP layer hands to the issuer
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// Config holds the credential options. Secrets and TTLs are per token class;
// distinct secrets keep a leaked activation key from forging sessions.
type Config interface {
	GetActivationSecret() string
	GetAccessSecret() string
	GetRefreshSecret() string
	GetActivationTTL() time.Duration
	GetAccessTTL() time.Duration
	GetRefreshTTL() time.Duration
	GetCodeLength() int
	GetCodeAlphabet() string
	GetIssuer() string
	GetAudience() []string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetRefreshCookieName() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CREDS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CREDS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CREDS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CREDS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
