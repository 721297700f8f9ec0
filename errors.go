package credentials

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to transports so clients can branch on the failure kind
// without parsing messages.
const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeTokenInvalid    = "TOKEN_INVALID"
	TextCodeCodeMismatch    = "CODE_MISMATCH"
	TextCodeAccountExists   = "ACCOUNT_EXISTS"
	TextCodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	TextCodeNotifyFailed    = "NOTIFICATION_FAILED"
)

// ErrInvalidCredentials is the unified identity/password failure. An unknown
// identifier and a wrong password produce this same error so callers cannot
// probe for account existence.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrTokenExpired indicates the embedded expiry has passed; the user should
// restart the flow that produced the token.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers bad signatures, garbage input, and tokens signed
// for a different class. Not retryable without a fresh token.
var ErrTokenMalformed = goerrors.New("token is invalid or malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenInvalid)

// ErrCodeMismatch means the token verified but the typed code did not match
// the embedded one. A mistyped code is retryable with the same token.
var ErrCodeMismatch = goerrors.New("activation code does not match", goerrors.CategoryValidation).
	WithTextCode(TextCodeCodeMismatch)

// ErrAccountExists is returned when a signup or activation collides with an
// already registered email or username.
var ErrAccountExists = goerrors.New("account already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountExists)

// ErrAccountNotFound is returned by flows that require a pre-existing account,
// such as a password reset request.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeAccountNotFound)

// ErrNotificationFailed wraps outbound notification failures; the underlying
// cause is preserved in the chain.
var ErrNotificationFailed = goerrors.New("failed to dispatch notification", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotifyFailed)

// ErrNoEmptyString guards hashing helpers against empty input
var ErrNoEmptyString = errors.New("string must not be empty")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// IsTokenExpiredError will check for expired tokens, including legacy string
// errors surfaced by transport middleware.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), "token has expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenInvalid {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsCodeMismatchError reports whether err is the activation code mismatch.
func IsCodeMismatchError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeCodeMismatch
}

// uniqueViolationFragments covers the engines the repository layer runs on.
var uniqueViolationFragments = []string{
	"UNIQUE constraint failed",                    // sqlite
	"duplicate key value violates unique constraint", // postgres
	"Duplicate entry", // mysql
}

// IsUniqueViolation reports whether err is a store-level uniqueness conflict.
// The store enforces email/username uniqueness at write time; command handlers
// map this onto ErrAccountExists.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, fragment := range uniqueViolationFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
