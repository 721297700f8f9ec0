package credentials

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type PasswordResetRequestMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Email of the account to reset."`
	OnResponse func(resp *PasswordResetRequestResponse)
}

func (e PasswordResetRequestMessage) Type() string { return "account.password_reset_request" }

type PasswordResetRequestResponse struct {
	Token     string
	Code      string
	ExpiresIn time.Duration
	Success   bool
}

// PasswordResetRequestHandler mints a pending reset token for an existing
// account and dispatches the code out-of-band. The token only names the
// account by email; the new password arrives at the complete step.
type PasswordResetRequestHandler struct {
	repo     RepositoryManager
	flow     *ActivationFlow
	notifier Notifier
	logger   Logger
}

func NewPasswordResetRequestHandler(repo RepositoryManager, flow *ActivationFlow, notifier Notifier) *PasswordResetRequestHandler {
	if notifier == nil {
		notifier = NewLogNotifier(nil)
	}
	return &PasswordResetRequestHandler{
		repo:     repo,
		flow:     flow,
		notifier: notifier,
		logger:   defLogger{},
	}
}

func (h *PasswordResetRequestHandler) Execute(ctx context.Context, event PasswordResetRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetRequestHandler) execute(ctx context.Context, event PasswordResetRequestMessage) error {
	resp := &PasswordResetRequestResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	token, code, err := h.flow.RequestReset(account.Email)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint reset token")
	}

	err = h.notifier.Notify(ctx, Notification{
		To:       account.Email,
		Subject:  "Reset your password",
		Template: "password-reset",
		Data: map[string]any{
			"name":  account.Name,
			"code":  code,
			"token": token,
			"ttl":   h.flow.codec.TTL().String(),
		},
	})
	if err != nil {
		h.logger.Error("PasswordResetRequest notification failed", "email", account.Email, "error", err)
		return err
	}

	resp.Token = token
	resp.Code = code
	resp.ExpiresIn = h.flow.codec.TTL()
	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
