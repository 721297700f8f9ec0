package credentials

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	Token      string `json:"token" doc:"Pending activation token from the signup request."`
	Code       string `json:"code" example:"1234" doc:"Out-of-band code the user typed back."`
	UseHashid  bool
	OnResponse func(resp *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

type ActivateAccountResponse struct {
	Account *Account
	Success bool
}

// ActivateAccountHandler consumes a pending activation token and materializes
// the embedded draft into a persisted account.
type ActivateAccountHandler struct {
	repo RepositoryManager
	flow *ActivationFlow
}

func NewActivateAccountHandler(repo RepositoryManager, flow *ActivationFlow) *ActivateAccountHandler {
	return &ActivateAccountHandler{repo: repo, flow: flow}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	resp := &ActivateAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.flow.Confirm(event.Token, event.Code)
	if err != nil {
		return err
	}

	// Signup and reset tokens share the activation codec, so a reset token
	// verifies fine here. The intent claim is what keeps it out: a reset
	// token carries no draft and must never mint an account.
	if !claims.IsSignup() {
		return ErrTokenMalformed
	}

	account := claims.Draft.Materialize()
	if event.UseHashid {
		if id, err := hashid.NewUUID(account.Email); err == nil {
			account.ID = id
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Accounts().CreateTx(ctx, tx, account)
		if err != nil {
			if IsUniqueViolation(err) {
				return ErrAccountExists
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		resp.Account = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
