package credentials_test

import (
	"context"
	"testing"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commandFixture struct {
	repo     *stubRepo
	flow     *credentials.ActivationFlow
	notifier *captureNotifier
}

func newCommandFixture() *commandFixture {
	return &commandFixture{
		repo:     newStubRepo(),
		flow:     newFlow(),
		notifier: &captureNotifier{},
	}
}

func (f *commandFixture) requestSignup(t *testing.T, name, username, email, password string) *credentials.SignupRequestResponse {
	t.Helper()

	var res *credentials.SignupRequestResponse
	handler := credentials.NewSignupRequestHandler(f.repo, f.flow, f.notifier)
	err := handler.Execute(context.Background(), credentials.SignupRequestMessage{
		Name:     name,
		Username: username,
		Email:    email,
		Password: password,
		OnResponse: func(resp *credentials.SignupRequestResponse) {
			res = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func (f *commandFixture) activate(t *testing.T, token, code string) (*credentials.ActivateAccountResponse, error) {
	t.Helper()

	var res *credentials.ActivateAccountResponse
	handler := credentials.NewActivateAccountHandler(f.repo, f.flow)
	err := handler.Execute(context.Background(), credentials.ActivateAccountMessage{
		Token: token,
		Code:  code,
		OnResponse: func(resp *credentials.ActivateAccountResponse) {
			res = resp
		},
	})
	return res, err
}

func TestSignupRequest(t *testing.T) {
	f := newCommandFixture()

	res := f.requestSignup(t, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Token)
	assert.Len(t, res.Code, credentials.DefaultCodeLength)
	assert.Equal(t, 15*time.Minute, res.ExpiresIn)

	// the code goes out-of-band, addressed to the signup email
	msg, ok := f.notifier.last()
	require.True(t, ok)
	assert.Equal(t, "pepe.rone@example.com", msg.To)
	assert.Equal(t, "activation", msg.Template)
	assert.Equal(t, res.Code, msg.Data["code"])
}

func TestSignupRequestDerivesUsername(t *testing.T) {
	f := newCommandFixture()

	res := f.requestSignup(t, "Pepe Rone", "", "pepe.rone@example.com", "aLongEnoughPassword!")

	claims, err := f.flow.Confirm(res.Token, res.Code)
	require.NoError(t, err)
	assert.Equal(t, "pepe.rone", claims.Draft.Username)
}

func TestSignupRequestTakenEmail(t *testing.T) {
	f := newCommandFixture()
	seedAccount(f.repo.accounts, "Existing", "existing", "pepe.rone@example.com", "aLongEnoughPassword!")

	handler := credentials.NewSignupRequestHandler(f.repo, f.flow, f.notifier)
	err := handler.Execute(context.Background(), credentials.SignupRequestMessage{
		Name:     "Pepe Rone",
		Email:    "pepe.rone@example.com",
		Password: "aLongEnoughPassword!",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrAccountExists)
}

func TestSignupRequestNotifierFailure(t *testing.T) {
	f := newCommandFixture()
	f.notifier.err = credentials.ErrNotificationFailed

	handler := credentials.NewSignupRequestHandler(f.repo, f.flow, f.notifier)
	err := handler.Execute(context.Background(), credentials.SignupRequestMessage{
		Name:     "Pepe Rone",
		Email:    "pepe.rone@example.com",
		Password: "aLongEnoughPassword!",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrNotificationFailed)
}

func TestActivateAccount(t *testing.T) {
	f := newCommandFixture()

	res := f.requestSignup(t, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")

	activated, err := f.activate(t, res.Token, res.Code)
	require.NoError(t, err)
	require.NotNil(t, activated.Account)
	assert.True(t, activated.Success)
	assert.Equal(t, "pepe.rone@example.com", activated.Account.Email)
	assert.Equal(t, []credentials.Role{credentials.RoleMember}, activated.Account.Roles)
	assert.NotEmpty(t, activated.Account.PasswordHash)
	assert.NotEqual(t, "aLongEnoughPassword!", activated.Account.PasswordHash)

	// the materialized account can authenticate
	provider := credentials.NewAccountProvider(f.repo.accounts)
	identity, err := provider.VerifyIdentity(context.Background(), "pepe.rone", "aLongEnoughPassword!")
	require.NoError(t, err)
	assert.Equal(t, activated.Account.ID.String(), identity.ID())
}

// With UseHashid the account ID derives deterministically from the email, so
// the same signup always materializes with the same ID.
func TestActivateAccountHashidID(t *testing.T) {
	f := newCommandFixture()

	res := f.requestSignup(t, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")

	var activated *credentials.ActivateAccountResponse
	handler := credentials.NewActivateAccountHandler(f.repo, f.flow)
	err := handler.Execute(context.Background(), credentials.ActivateAccountMessage{
		Token:     res.Token,
		Code:      res.Code,
		UseHashid: true,
		OnResponse: func(resp *credentials.ActivateAccountResponse) {
			activated = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, activated.Account)

	want, err := hashid.NewUUID("pepe.rone@example.com")
	require.NoError(t, err)
	assert.Equal(t, want, activated.Account.ID)
}

func TestActivateAccountWrongCode(t *testing.T) {
	f := newCommandFixture()

	res := f.requestSignup(t, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")

	_, err := f.activate(t, res.Token, wrongCode(res.Code))
	require.Error(t, err)
	assert.True(t, credentials.IsCodeMismatchError(err))

	// nothing was persisted
	_, err = f.repo.accounts.GetByEmail(context.Background(), "pepe.rone@example.com")
	assert.Error(t, err)
}

func TestActivateAccountReplay(t *testing.T) {
	f := newCommandFixture()

	res := f.requestSignup(t, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")

	_, err := f.activate(t, res.Token, res.Code)
	require.NoError(t, err)

	// replaying a still-valid token runs into the uniqueness constraint
	_, err = f.activate(t, res.Token, res.Code)
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrAccountExists)
}

func TestActivateAccountRejectsResetToken(t *testing.T) {
	f := newCommandFixture()

	token, code, err := f.flow.RequestReset("pepe.rone@example.com")
	require.NoError(t, err)

	_, err = f.activate(t, token, code)
	require.Error(t, err)
	assert.True(t, credentials.IsMalformedError(err))
}

func TestPasswordResetRequest(t *testing.T) {
	f := newCommandFixture()
	seedAccount(f.repo.accounts, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")

	var res *credentials.PasswordResetRequestResponse
	handler := credentials.NewPasswordResetRequestHandler(f.repo, f.flow, f.notifier)
	err := handler.Execute(context.Background(), credentials.PasswordResetRequestMessage{
		Email: "pepe.rone@example.com",
		OnResponse: func(resp *credentials.PasswordResetRequestResponse) {
			res = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Token)
	assert.Len(t, res.Code, credentials.DefaultCodeLength)

	msg, ok := f.notifier.last()
	require.True(t, ok)
	assert.Equal(t, "password-reset", msg.Template)
	assert.Equal(t, res.Code, msg.Data["code"])
}

func TestPasswordResetRequestUnknownEmail(t *testing.T) {
	f := newCommandFixture()

	handler := credentials.NewPasswordResetRequestHandler(f.repo, f.flow, f.notifier)
	err := handler.Execute(context.Background(), credentials.PasswordResetRequestMessage{
		Email: "nobody@example.com",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrAccountNotFound)
}

func TestPasswordResetVerify(t *testing.T) {
	f := newCommandFixture()

	token, code, err := f.flow.RequestReset("pepe.rone@example.com")
	require.NoError(t, err)

	var res *credentials.PasswordResetVerifyResponse
	handler := credentials.NewPasswordResetVerifyHandler(f.flow)
	err = handler.Execute(context.Background(), credentials.PasswordResetVerifyMessage{
		Token: token,
		Code:  code,
		OnResponse: func(resp *credentials.PasswordResetVerifyResponse) {
			res = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, "pepe.rone@example.com", res.Email)
}

func TestPasswordResetVerifyWrongCode(t *testing.T) {
	f := newCommandFixture()

	token, code, err := f.flow.RequestReset("pepe.rone@example.com")
	require.NoError(t, err)

	handler := credentials.NewPasswordResetVerifyHandler(f.flow)
	err = handler.Execute(context.Background(), credentials.PasswordResetVerifyMessage{
		Token: token,
		Code:  wrongCode(code),
	})
	require.Error(t, err)
	assert.True(t, credentials.IsCodeMismatchError(err))
}

func TestPasswordResetComplete(t *testing.T) {
	f := newCommandFixture()
	account := seedAccount(f.repo.accounts, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")
	oldHash := account.PasswordHash

	token, code, err := f.flow.RequestReset("pepe.rone@example.com")
	require.NoError(t, err)

	handler := credentials.NewPasswordResetCompleteHandler(f.repo, f.flow)
	err = handler.Execute(context.Background(), credentials.PasswordResetCompleteMessage{
		Token:    token,
		Code:     code,
		Password: "aBrandNewPassword!",
	})
	require.NoError(t, err)

	updated := f.repo.accounts.get(account.ID)
	require.NotNil(t, updated)
	assert.NotEqual(t, oldHash, updated.PasswordHash)

	assert.NoError(t, credentials.ComparePasswordAndHash("aBrandNewPassword!", updated.PasswordHash))
	assert.ErrorIs(t, credentials.ComparePasswordAndHash("aLongEnoughPassword!", updated.PasswordHash), credentials.ErrInvalidCredentials)
}

func TestPasswordResetCompleteWrongCodeLeavesPassword(t *testing.T) {
	f := newCommandFixture()
	account := seedAccount(f.repo.accounts, "Pepe Rone", "pepe.rone", "pepe.rone@example.com", "aLongEnoughPassword!")
	oldHash := account.PasswordHash

	token, code, err := f.flow.RequestReset("pepe.rone@example.com")
	require.NoError(t, err)

	handler := credentials.NewPasswordResetCompleteHandler(f.repo, f.flow)
	err = handler.Execute(context.Background(), credentials.PasswordResetCompleteMessage{
		Token:    token,
		Code:     wrongCode(code),
		Password: "aBrandNewPassword!",
	})
	require.Error(t, err)
	assert.True(t, credentials.IsCodeMismatchError(err))

	assert.Equal(t, oldHash, f.repo.accounts.get(account.ID).PasswordHash)
}

func TestPasswordResetCompleteRejectsSignupToken(t *testing.T) {
	f := newCommandFixture()

	token, code, err := f.flow.RequestSignup(&credentials.AccountDraft{
		Username:     "pepe.rone",
		Email:        "pepe.rone@example.com",
		PasswordHash: "$2a$12$fakefakefakefakefakefake",
	})
	require.NoError(t, err)

	handler := credentials.NewPasswordResetCompleteHandler(f.repo, f.flow)
	err = handler.Execute(context.Background(), credentials.PasswordResetCompleteMessage{
		Token:    token,
		Code:     code,
		Password: "aBrandNewPassword!",
	})
	require.Error(t, err)
	assert.True(t, credentials.IsMalformedError(err))
}

func TestCommandsHonorCancelledContext(t *testing.T) {
	f := newCommandFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := credentials.NewSignupRequestHandler(f.repo, f.flow, f.notifier)
	err := handler.Execute(ctx, credentials.SignupRequestMessage{
		Name:     "Pepe Rone",
		Email:    "pepe.rone@example.com",
		Password: "aLongEnoughPassword!",
	})
	assert.Error(t, err)
}
