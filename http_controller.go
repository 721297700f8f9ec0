package credentials

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterCredentialRoutes mounts the credential lifecycle endpoints on the
// given router.
func RegisterCredentialRoutes[T any](app router.Router[T], opts ...CredentialsControllerOption) {
	controller := NewCredentialsController(opts...)

	app.Post(controller.Routes.Signup, controller.SignupPost).
		SetName("signup.post")
	app.Post(controller.Routes.Activate, controller.ActivatePost).
		SetName("activate.post")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("login.post")
	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("logout.post")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")
	app.Post(fmt.Sprintf("%s/verify", controller.Routes.PasswordReset), controller.PasswordResetVerifyPost).
		SetName("pwd-reset-verify.post")
	app.Post(fmt.Sprintf("%s/complete", controller.Routes.PasswordReset), controller.PasswordResetCompletePost).
		SetName("pwd-reset-complete.post")

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)
	app.Get(controller.Routes.Me, protected(controller.MeGet)).
		SetName("me.get")
}

type CredentialsControllerRoutes struct {
	Signup        string
	Activate      string
	Login         string
	Logout        string
	PasswordReset string
	Me            string
}

type CredentialsController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Flow         *ActivationFlow
	Notifier     Notifier
	Auther       *RouteAuthenticator
	Config       Config
	Routes       *CredentialsControllerRoutes
	ErrorHandler router.ErrorHandler
}

type CredentialsControllerOption func(*CredentialsController) *CredentialsController

func NewCredentialsController(opts ...CredentialsControllerOption) *CredentialsController {
	c := &CredentialsController{
		Logger: defLogger{},
		Routes: &CredentialsControllerRoutes{
			Signup:        "/signup",
			Activate:      "/activate",
			Login:         "/login",
			Logout:        "/logout",
			PasswordReset: "/password-reset",
			Me:            "/me",
		},
	}
	c.ErrorHandler = c.respondError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in credentials controller...")
	}

	if c.Flow == nil {
		panic("Missing ActivationFlow in credentials controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in credentials controller...")
	}

	if c.Config == nil {
		panic("Missing Config in credentials controller...")
	}

	return c
}

// SignupRequestPayload is the signup request body
type SignupRequestPayload struct {
	Name            string `form:"name" json:"name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r SignupRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *CredentialsController) SignupPost(ctx router.Context) error {
	payload := new(SignupRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return a.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("signup validate payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= SIGNUP REQUEST ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	var res *SignupRequestResponse
	req := SignupRequestMessage{
		Name:     payload.Name,
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *SignupRequestResponse) {
			res = resp
		},
	}

	signup := NewSignupRequestHandler(a.Repo, a.Flow, a.Notifier)
	if err := signup.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("signup execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, router.ViewContext{
		"success":    true,
		"token":      res.Token,
		"expires_in": res.ExpiresIn.String(),
	})
}

// ActivatePayload is the account activation body
type ActivatePayload struct {
	Token string `form:"activation_token" json:"activation_token"`
	Code  string `form:"activation_code" json:"activation_code"`
}

// Validate will run validation rules
func (r ActivatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Code, validation.Required),
	)
}

func (a *CredentialsController) ActivatePost(ctx router.Context) error {
	payload := new(ActivatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("activate parse payload", "error", err)
		return a.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("activate validate payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	var res *ActivateAccountResponse
	req := ActivateAccountMessage{
		Token: payload.Token,
		Code:  payload.Code,
		OnResponse: func(resp *ActivateAccountResponse) {
			res = resp
		},
	}

	activate := NewActivateAccountHandler(a.Repo, a.Flow)
	if err := activate.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("activate execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, router.ViewContext{
		"success": true,
		"account": res.Account,
	})
}

// LoginRequest payload. The wire name for the identifier is "user"; it takes
// either a username or an email.
type LoginRequest struct {
	Identifier string `form:"user" json:"user"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *CredentialsController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login validate payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= CREDS LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==========================")
	}

	session, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success":      true,
		"access_token": session.AccessToken,
		"roles":        session.Roles,
		"expires_at":   session.AccessExpiresAt,
	})
}

// LogoutPost revokes the session named by the refresh cookie. It answers 204
// regardless of whether a session existed.
func (a *CredentialsController) LogoutPost(ctx router.Context) error {
	if err := a.Auther.Logout(ctx); err != nil {
		a.Logger.Error("logout execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(router.StatusNoContent)
}

// PasswordResetRequestPayload holds values for the reset request
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *CredentialsController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload", "error", err)
		return a.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	var res *PasswordResetRequestResponse
	req := PasswordResetRequestMessage{
		Email: payload.Email,
		OnResponse: func(resp *PasswordResetRequestResponse) {
			res = resp
		},
	}

	reset := NewPasswordResetRequestHandler(a.Repo, a.Flow, a.Notifier)
	if err := reset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println("================")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("================")
	}

	return ctx.JSON(router.StatusCreated, router.ViewContext{
		"success":    true,
		"token":      res.Token,
		"expires_in": res.ExpiresIn.String(),
	})
}

// PasswordResetVerifyPayload holds the token and code mid-flow
type PasswordResetVerifyPayload struct {
	Token string `form:"activation_token" json:"activation_token"`
	Code  string `form:"activation_code" json:"activation_code"`
}

// Validate will run validation rules
func (r PasswordResetVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Code, validation.Required),
	)
}

func (a *CredentialsController) PasswordResetVerifyPost(ctx router.Context) error {
	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset verify parse payload", "error", err)
		return a.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset verify validate payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	var res *PasswordResetVerifyResponse
	req := PasswordResetVerifyMessage{
		Token: payload.Token,
		Code:  payload.Code,
		OnResponse: func(resp *PasswordResetVerifyResponse) {
			res = resp
		},
	}

	verify := NewPasswordResetVerifyHandler(a.Flow)
	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset verify execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, router.ViewContext{
		"success": true,
		"email":   res.Email,
	})
}

// PasswordResetCompletePayload carries the token, code and the new password
type PasswordResetCompletePayload struct {
	Token           string `form:"activation_token" json:"activation_token"`
	Code            string `form:"activation_code" json:"activation_code"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r PasswordResetCompletePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Code, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *CredentialsController) PasswordResetCompletePost(ctx router.Context) error {
	payload := new(PasswordResetCompletePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset complete parse payload", "error", err)
		return a.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset complete validate payload", "error", err)
		return a.respondValidation(ctx, err)
	}

	var res *PasswordResetCompleteResponse
	req := PasswordResetCompleteMessage{
		Token:    payload.Token,
		Code:     payload.Code,
		Password: payload.Password,
		OnResponse: func(resp *PasswordResetCompleteResponse) {
			res = resp
		},
	}

	complete := NewPasswordResetCompleteHandler(a.Repo, a.Flow)
	if err := complete.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset complete execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, router.ViewContext{
		"success": true,
		"account": res.Account,
	})
}

// MeGet echoes the verified access claims. Runs behind ProtectedRoute; by the
// time it executes the middleware has stored the claims in locals.
func (a *CredentialsController) MeGet(ctx router.Context) error {
	claims, err := GetRouterClaims(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryAuth, "No session claims in request context").
			WithCode(errors.CodeUnauthorized).
			WithTextCode(TextCodeTokenInvalid))
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success":  true,
		"id":       claims.UserID(),
		"username": claims.Username,
		"roles":    claims.Roles(),
	})
}

func (a *CredentialsController) respondBadPayload(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, router.ViewContext{
		"success": false,
		"error":   "Failed to parse request body",
		"details": err.Error(),
	})
}

func (a *CredentialsController) respondValidation(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, router.ViewContext{
		"success":    false,
		"error":      "Validation failed",
		"validation": FormatValidationErrorToMap(err),
	})
}

// respondError maps domain errors onto transport statuses. Token and
// credential failures are 401, retryable flow mistakes are 400, everything
// unexpected is 500 with a generic body.
func (a *CredentialsController) respondError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Error(
		"Controller error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := router.StatusInternalServerError
	switch richErr.TextCode {
	case TextCodeInvalidCreds, TextCodeTokenExpired, TextCodeTokenInvalid:
		status = router.StatusUnauthorized
	case TextCodeCodeMismatch, TextCodeAccountExists, TextCodeAccountNotFound:
		status = router.StatusBadRequest
	default:
		if richErr.Category == errors.CategoryValidation || richErr.Category == errors.CategoryBadInput {
			status = router.StatusBadRequest
		}
	}

	body := router.ViewContext{
		"success":   false,
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	}

	if status == router.StatusInternalServerError {
		body["error"] = "An unexpected server error occurred"
		body["text_code"] = ""
	}

	return ctx.JSON(status, body)
}

// FormatValidationErrorToMap flattens ozzo validation errors to field messages.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

// ValidateStringEquals will check that both values match. Empty values pass,
// so optional confirmation fields only validate when the client sends them.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if s != str {
			return errors.New("values must match", errors.CategoryValidation)
		}
		return nil
	}
}
