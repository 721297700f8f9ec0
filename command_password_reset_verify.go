package credentials

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type PasswordResetVerifyMessage struct {
	Token      string `json:"token" doc:"Pending reset token from the reset request."`
	Code       string `json:"code" example:"1234" doc:"Out-of-band code the user typed back."`
	OnResponse func(resp *PasswordResetVerifyResponse)
}

func (e PasswordResetVerifyMessage) Type() string { return "account.password_reset_verify" }

type PasswordResetVerifyResponse struct {
	Email   string
	Success bool
}

// PasswordResetVerifyHandler checks a (token, code) pair without consuming it.
// The middle step of the reset flow: the client learns the pair is good before
// asking the user for a new password. No account state changes here.
type PasswordResetVerifyHandler struct {
	flow *ActivationFlow
}

func NewPasswordResetVerifyHandler(flow *ActivationFlow) *PasswordResetVerifyHandler {
	return &PasswordResetVerifyHandler{flow: flow}
}

func (h *PasswordResetVerifyHandler) Execute(ctx context.Context, event PasswordResetVerifyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetVerifyHandler) execute(ctx context.Context, event PasswordResetVerifyMessage) error {
	claims, err := h.flow.Confirm(event.Token, event.Code)
	if err != nil {
		return err
	}

	if claims.IsSignup() {
		return ErrTokenMalformed
	}

	if event.OnResponse != nil {
		event.OnResponse(&PasswordResetVerifyResponse{
			Email:   claims.SubjectEmail(),
			Success: true,
		})
	}

	return nil
}
