package credentials

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type SignupRequestMessage struct {
	Name       string `json:"name" example:"Pepe Rone" doc:"Display name."`
	Username   string `json:"username" example:"pepe.rone" doc:"Unique handle, defaults to the email local part."`
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Password   string `json:"password" doc:"Plaintext password, hashed before it enters the token."`
	OnResponse func(resp *SignupRequestResponse)
}

func (e SignupRequestMessage) Type() string { return "account.signup_request" }

type SignupRequestResponse struct {
	Token     string
	Code      string
	ExpiresIn time.Duration
	Success   bool
}

// SignupRequestHandler mints a pending activation token for a new account.
// Nothing is persisted here: the draft rides inside the signed token and only
// becomes a row when the activation is confirmed.
type SignupRequestHandler struct {
	repo     RepositoryManager
	flow     *ActivationFlow
	notifier Notifier
	logger   Logger
}

func NewSignupRequestHandler(repo RepositoryManager, flow *ActivationFlow, notifier Notifier) *SignupRequestHandler {
	if notifier == nil {
		notifier = NewLogNotifier(nil)
	}
	return &SignupRequestHandler{
		repo:     repo,
		flow:     flow,
		notifier: notifier,
		logger:   defLogger{},
	}
}

func (h *SignupRequestHandler) Execute(ctx context.Context, event SignupRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupRequestHandler) execute(ctx context.Context, event SignupRequestMessage) error {
	resp := &SignupRequestResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// Fail fast on a taken email. The activation step re-checks through the
	// unique constraint, so a race here only delays the same answer.
	if existing, err := h.repo.Accounts().GetByEmail(ctx, event.Email); err == nil && existing != nil {
		return ErrAccountExists
	} else if err != nil && !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	draft := &AccountDraft{
		Name:         event.Name,
		Username:     deriveUsername(event.Username, event.Email),
		Email:        event.Email,
		PasswordHash: hash,
	}

	token, code, err := h.flow.RequestSignup(draft)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint activation token")
	}

	err = h.notifier.Notify(ctx, Notification{
		To:       event.Email,
		Subject:  "Confirm your account",
		Template: "activation",
		Data: map[string]any{
			"name":  draft.Name,
			"code":  code,
			"token": token,
			"ttl":   h.flow.codec.TTL().String(),
		},
	})
	if err != nil {
		h.logger.Error("SignupRequest notification failed", "email", event.Email, "error", err)
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

func deriveUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
