package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec mints and verifies signed, time-bound tokens for a single token
// class. It holds no mutable state; every output is a pure function of the
// claims, the secret, and the clock.
//
// A codec verifies only tokens minted with its own secret. Each class
// (activation, access, refresh) gets its own codec so classes cannot be
// substituted for one another.
type TokenCodec struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience jwt.ClaimStrings
	logger   Logger
	now      func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithCodecLogger overrides the codec logger.
func WithCodecLogger(logger Logger) CodecOption {
	return func(c *TokenCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCodecTimeFunc overrides the clock used during verification. Tests use
// this to pin the expiry boundary.
func WithCodecTimeFunc(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec creates a codec for one token class.
func NewTokenCodec(secret []byte, ttl time.Duration, issuer string, audience []string, opts ...CodecOption) *TokenCodec {
	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	c := &TokenCodec{
		secret:   secret,
		ttl:      ttl,
		issuer:   issuer,
		audience: aud,
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// TTL returns the default lifetime for tokens minted by this codec.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// MintOptions controls how Mint issues a token.
type MintOptions struct {
	// TTL overrides the codec default. Zero uses the codec's TTL.
	TTL time.Duration
	// IssuedAt overrides the issuance time. Zero uses the codec clock.
	IssuedAt time.Time
	// Subject sets the sub claim.
	Subject string
}

// Mint stamps registered claims (issuer, audience, iat, exp, jti) onto the
// payload, signs it, and returns the compact token plus its expiry.
func (c *TokenCodec) Mint(claims TokenClaims, opts MintOptions) (string, time.Time, error) {
	if claims == nil {
		return "", time.Time{}, goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = c.ttl
	}
	if ttl < 0 {
		return "", time.Time{}, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = c.now()
	}
	expiresAt := issuedAt.Add(ttl)

	registered := claims.Registered()
	registered.Issuer = c.issuer
	registered.Audience = c.audience
	registered.IssuedAt = jwt.NewNumericDate(issuedAt)
	registered.ExpiresAt = jwt.NewNumericDate(expiresAt)
	if opts.Subject != "" {
		registered.Subject = opts.Subject
	}

	ensureTokenID(registered)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, expiresAt, nil
}

// Verify parses raw into claims and validates signature, class secret, and
// expiry. It fails with ErrTokenExpired when the embedded expiry has passed
// and with ErrTokenMalformed for anything the signature does not vouch for:
// garbage input, tampering, or a token minted under a different secret.
//
// A tampered token that also happens to be expired still reports
// ErrTokenMalformed: nothing about an unverified payload is trusted, the
// expiry included. Expiry is exclusive: a token is rejected at exactly its
// expiry instant.
func (c *TokenCodec) Verify(raw string, claims TokenClaims) error {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(c.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("TokenCodec verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, parserOptions...)

	if err != nil {
		// Signature problems dominate: an attacker controls every byte of an
		// unverifiable token, so its exp claim means nothing.
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenMalformed) {
			return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(TextCodeTokenInvalid)
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(TextCodeTokenInvalid)
	}

	if !token.Valid {
		c.logger.Error("TokenCodec verify could not validate claims")
		return ErrTokenMalformed
	}

	return nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
