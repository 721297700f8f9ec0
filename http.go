package credentials

import (
	"time"

	"github.com/goliatone/go-credentials/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator binds the issuer and terminator to HTTP semantics: the
// access token travels in the response body and Authorization headers, the
// refresh token only ever in an HTTP only cookie.
type RouteAuthenticator struct {
	issuer           *SessionIssuer
	terminator       Terminator
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(issuer *SessionIssuer, terminator Terminator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:        cfg,
		issuer:     issuer,
		terminator: terminator,
		Logger:     defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultErrHandler

	return a, nil
}

// accessTokenValidator adapts the issuer's access codec to the middleware's
// validator interface.
type accessTokenValidator struct {
	issuer *SessionIssuer
}

func (v accessTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.issuer.VerifyAccess(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenValidator exposes the access token validator for custom middleware
// configurations.
func (a *RouteAuthenticator) TokenValidator() jwtware.TokenValidator {
	return accessTokenValidator{issuer: a.issuer}
}

// ProtectedRoute guards a route group with access token verification.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: a.TokenValidator(),
		AuthScheme:     cfg.GetAuthScheme(),
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
	})
}

// Login verifies the payload credentials, sets the refresh cookie, and
// returns the minted session for the response body.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (*SessionTokens, error) {
	session, err := a.issuer.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	a.setRefreshCookie(ctx, session.RefreshToken, session.RefreshExpiresAt)
	return session, nil
}

// Logout revokes whatever session the refresh cookie names and clears the
// cookie. Both steps run even when there is nothing to revoke; logout always
// leaves the client signed out.
func (a *RouteAuthenticator) Logout(ctx router.Context) error {
	token := ctx.Cookies(a.cfg.GetRefreshCookieName())

	defer a.cookieDel(ctx, a.cfg.GetRefreshCookieName())

	if token == "" {
		return nil
	}

	if err := a.terminator.Logout(ctx.Context(), token); err != nil {
		a.Logger.Error("Logout error: %s", err)
		return err
	}

	return nil
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.AuthErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) setRefreshCookie(c router.Context, val string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetRefreshCookieName(),
		Value:    val,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
	)

	status := richErr.Code
	if status == 0 {
		status = router.StatusUnauthorized
	}

	return c.JSON(status, router.ViewContext{
		"success":   false,
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
