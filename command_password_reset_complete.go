package credentials

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type PasswordResetCompleteMessage struct {
	Token      string `json:"token" doc:"Pending reset token from the reset request."`
	Code       string `json:"code" example:"1234" doc:"Out-of-band code the user typed back."`
	Password   string `json:"password" doc:"Replacement plaintext password."`
	OnResponse func(resp *PasswordResetCompleteResponse)
}

func (e PasswordResetCompleteMessage) Type() string { return "account.password_reset_complete" }

type PasswordResetCompleteResponse struct {
	Account *Account
	Success bool
}

// PasswordResetCompleteHandler consumes a verified reset token and replaces
// the account password. The token and code are re-checked here: the verify
// step is advisory and the complete step never trusts that it ran.
type PasswordResetCompleteHandler struct {
	repo RepositoryManager
	flow *ActivationFlow
}

func NewPasswordResetCompleteHandler(repo RepositoryManager, flow *ActivationFlow) *PasswordResetCompleteHandler {
	return &PasswordResetCompleteHandler{repo: repo, flow: flow}
}

func (h *PasswordResetCompleteHandler) Execute(ctx context.Context, event PasswordResetCompleteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset completion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetCompleteHandler) execute(ctx context.Context, event PasswordResetCompleteMessage) error {
	resp := &PasswordResetCompleteResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.flow.Confirm(event.Token, event.Code)
	if err != nil {
		return err
	}

	if claims.IsSignup() {
		return ErrTokenMalformed
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().ResetPasswordTx(ctx, tx, claims.SubjectEmail(), hash)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrAccountNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account password")
		}

		resp.Account = account
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
