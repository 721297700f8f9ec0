package credentials

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SessionTerminator revokes sessions by clearing the stored refresh token.
type SessionTerminator struct {
	repo   RepositoryManager
	logger Logger
}

var _ Terminator = (*SessionTerminator)(nil)

func NewSessionTerminator(repo RepositoryManager) *SessionTerminator {
	return &SessionTerminator{
		repo:   repo,
		logger: defLogger{},
	}
}

func (s *SessionTerminator) WithLogger(logger Logger) *SessionTerminator {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Logout revokes the session bound to the presented refresh token. The clear
// is guarded by value: it only lands on a row whose stored token still equals
// the presented one, so a logout racing a fresh login never tears down the
// newer session. Unknown or already-revoked tokens are a no-op; logout is
// idempotent and never reports whether a session existed.
func (s *SessionTerminator) Logout(ctx context.Context, presentedRefreshToken string) error {
	if presentedRefreshToken == "" {
		return nil
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		cleared, err := s.repo.Accounts().ClearRefreshTokenTx(ctx, tx, presentedRefreshToken)
		if err != nil {
			return err
		}

		if !cleared {
			s.logger.Debug("Logout presented token matched no stored session")
		}

		return nil
	})

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session")
	}

	return nil
}
