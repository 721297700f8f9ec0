package credentials

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SessionIssuer turns verified credentials into a session token pair. The
// access token stays stateless; the refresh token is persisted on the account
// row in the same transaction that mints it, so the stored copy and the
// returned copy can never diverge.
type SessionIssuer struct {
	provider     IdentityProvider
	repo         RepositoryManager
	accessCodec  *TokenCodec
	refreshCodec *TokenCodec
	logger       Logger
}

var _ Issuer = (*SessionIssuer)(nil)

// NewSessionIssuer returns a new SessionIssuer
func NewSessionIssuer(provider IdentityProvider, repo RepositoryManager, opts Config) *SessionIssuer {
	return &SessionIssuer{
		provider: provider,
		repo:     repo,
		accessCodec: NewTokenCodec(
			[]byte(opts.GetAccessSecret()),
			opts.GetAccessTTL(),
			opts.GetIssuer(),
			opts.GetAudience(),
		),
		refreshCodec: NewTokenCodec(
			[]byte(opts.GetRefreshSecret()),
			opts.GetRefreshTTL(),
			opts.GetIssuer(),
			opts.GetAudience(),
		),
		logger: defLogger{},
	}
}

func (s *SessionIssuer) WithLogger(logger Logger) *SessionIssuer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// AccessCodec exposes the codec protected routes verify access tokens with.
func (s *SessionIssuer) AccessCodec() *TokenCodec {
	return s.accessCodec
}

// RefreshCodec exposes the codec used for refresh tokens.
func (s *SessionIssuer) RefreshCodec() *TokenCodec {
	return s.refreshCodec
}

// Login verifies the credentials and, when they hold, mints a fresh token
// pair. Each login overwrites the account's stored refresh token: one live
// session per account, and a login on a second device silently revokes the
// first.
func (s *SessionIssuer) Login(ctx context.Context, identifier, password string) (*SessionTokens, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, ErrIdentityNotFound
	}

	access := &AccessClaims{
		Username:  identity.Username(),
		UserRoles: identity.Roles(),
	}
	accessToken, accessExpiresAt, err := s.accessCodec.Mint(access, MintOptions{
		Subject: identity.ID(),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint access token")
	}

	refresh := &RefreshClaims{
		Username: identity.Username(),
	}
	refreshToken, refreshExpiresAt, err := s.refreshCodec.Mint(refresh, MintOptions{
		Subject: identity.ID(),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint refresh token")
	}

	accountID, err := parseAccountID(identity.ID())
	if err != nil {
		return nil, err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Accounts().StoreRefreshTokenTx(ctx, tx, accountID, refreshToken)
	})
	if err != nil {
		s.logger.Error("Login failed to persist refresh token", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return &SessionTokens{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		Roles:            identity.Roles(),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// VerifyAccess validates a raw access token and returns its claims.
func (s *SessionIssuer) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.accessCodec.Verify(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
