package credentials

import (
	"crypto/rand"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
)

// Defaults for the out-of-band code: four digits, matching what users expect
// to copy from an email on a phone screen.
const (
	DefaultCodeLength   = 4
	DefaultCodeAlphabet = "0123456789"
)

// GenerateCode produces a fixed-length random code drawn from alphabet using
// crypto/rand.
func GenerateCode(length int, alphabet string) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if alphabet == "" {
		alphabet = DefaultCodeAlphabet
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate activation code")
		}
		out[i] = alphabet[n.Int64()]
	}

	return string(out), nil
}

// ActivationFlow mints and consumes pending-action tokens for signup
// activation and password reset. Both actions share one shape: a signed token
// carrying the action payload plus a random code, returned to the caller while
// the code goes out-of-band. The server keeps no state for the pending step;
// validity lives entirely in the signature and the embedded expiry.
type ActivationFlow struct {
	codec        *TokenCodec
	codeLength   int
	codeAlphabet string
}

// NewActivationFlow builds a flow around the activation-class codec.
func NewActivationFlow(codec *TokenCodec, codeLength int, codeAlphabet string) *ActivationFlow {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	if codeAlphabet == "" {
		codeAlphabet = DefaultCodeAlphabet
	}
	return &ActivationFlow{
		codec:        codec,
		codeLength:   codeLength,
		codeAlphabet: codeAlphabet,
	}
}

// RequestSignup mints a pending activation token embedding the account draft
// and a fresh code. The draft's password is already hashed.
func (f *ActivationFlow) RequestSignup(draft *AccountDraft) (token, code string, err error) {
	if draft == nil {
		return "", "", goerrors.New("signup draft is required", goerrors.CategoryBadInput)
	}

	code, err = GenerateCode(f.codeLength, f.codeAlphabet)
	if err != nil {
		return "", "", err
	}

	claims := &ActivationClaims{
		Draft: draft,
		Code:  code,
	}

	token, _, err = f.codec.Mint(claims, MintOptions{Subject: draft.Email})
	if err != nil {
		return "", "", err
	}

	return token, code, nil
}

// RequestReset mints a pending password-reset token referencing the account
// by email, with a fresh code.
func (f *ActivationFlow) RequestReset(email string) (token, code string, err error) {
	if email == "" {
		return "", "", goerrors.New("email is required", goerrors.CategoryBadInput)
	}

	code, err = GenerateCode(f.codeLength, f.codeAlphabet)
	if err != nil {
		return "", "", err
	}

	claims := &ActivationClaims{
		Email: email,
		Code:  code,
	}

	token, _, err = f.codec.Mint(claims, MintOptions{Subject: email})
	if err != nil {
		return "", "", err
	}

	return token, code, nil
}

// Confirm consumes a (token, typed code) pair. Token failures propagate as
// ErrTokenExpired or ErrTokenMalformed; a verified token with a wrong code
// fails with ErrCodeMismatch, which is retryable with the same token, unlike
// a signature failure.
func (f *ActivationFlow) Confirm(token, codeTyped string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := f.codec.Verify(token, claims); err != nil {
		return nil, err
	}

	if claims.Code == "" || claims.Code != codeTyped {
		return nil, ErrCodeMismatch
	}

	return claims, nil
}
