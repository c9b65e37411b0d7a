package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/user"
)

type userApi struct {
	conf     *core.Config
	logger   core.Logger
	svc      user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, auth echo.MiddlewareFunc, opts *Options) {
	api := userApi{
		conf:     opts.Conf,
		logger:   opts.Logger,
		svc:      opts.UserSvc,
		validate: opts.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/guest", api.guest)
	ag.POST("/social", api.social)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.GET("/me", api.me, auth)
	ag.PUT("/preferences", api.updatePreferences, auth)
	ag.POST("/logout", api.logout, auth)
	ag.POST("/token-refresh", api.refreshToken, auth)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return api.respondWithToken(ctx, http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.respondWithToken(ctx, http.StatusOK, usr)
}

func (api *userApi) guest(ctx echo.Context) error {
	usr, err := api.svc.CreateGuest(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "creating guest")
	}
	return api.respondWithToken(ctx, http.StatusCreated, usr)
}

func (api *userApi) social(ctx echo.Context) error {
	var data user.SocialLogin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SocialLogin")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.SocialLogin(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "social login")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}
	return api.respondWithToken(ctx, http.StatusOK, usr)
}

func (api *userApi) respondWithToken(ctx echo.Context, code int, usr user.User) error {
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, AuthResponse{AccessToken: token, TokenType: "bearer", User: usr})
}

func (api *userApi) me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, mustContextUser(ctx))
}

func (api *userApi) updatePreferences(ctx echo.Context) error {
	var data user.UpdatePreferences
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePreferences")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdatePreferences(ctx.Request().Context(), mustContextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating preferences")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// logout is a no-op: tokens are stateless and dropped by the client.
func (api *userApi) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, AuthResponse{AccessToken: token, TokenType: "bearer", User: mustContextUser(ctx)})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	AuthResponse struct {
		AccessToken string    `json:"access_token"`
		TokenType   string    `json:"token_type"`
		User        user.User `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
