package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
)

type authApi struct {
	auth     *Authenticator
	svc      *user.Service
	roles    *role.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerAuthAPI(g *echo.Group, authed []echo.MiddlewareFunc, auth *Authenticator, deps ServerDeps) {
	api := authApi{
		auth:     auth,
		svc:      deps.UserSvc,
		roles:    deps.RoleSvc,
		validate: deps.Validate,
		logger:   deps.Logger,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/signup", api.signUp)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	sg := ag.Group("", authed...)
	sg.POST("/logout", api.logout)
	sg.GET("/session", api.session)
	sg.POST("/token-refresh", api.refreshToken)
}

// Handlers

func (api *authApi) signUp(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	usr, err := api.svc.SignUp(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	token, usr, sess, err := api.auth.Login(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return err
	}
	r, err := api.roles.RoleOf(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "resolving role")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Session: newSessionResponse(sess, usr, r)})
}

func (api *authApi) logout(ctx echo.Context) error {
	sess := getContextSession(ctx)
	if err := api.svc.SignOut(ctx.Request().Context(), sess.ID); err != nil {
		return errors.Wrap(err, "signing out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) session(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	gs := getContextSession(ctx)
	sess, _, err := api.svc.Session(ctx.Request().Context(), gs.ID)
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(sess, usr, gs.Role))
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.Refresh(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Is(err, user.ErrNotFound)) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "Si cette adresse correspond à un compte actif, un email de réinitialisation vous a été envoyé.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Le mot de passe a été réinitialisé."})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string           `json:"token"`
		Session *SessionResponse `json:"session,omitempty"`
	}

	// SessionResponse is what the client needs to decide which views it may show.
	SessionResponse struct {
		user.Session
		User         user.User                `json:"user"`
		Role         role.Role                `json:"role"`
		Capabilities map[role.Capability]bool `json:"capabilities"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func newSessionResponse(sess user.Session, usr user.User, r role.Role) *SessionResponse {
	return &SessionResponse{Session: sess, User: usr, Role: r, Capabilities: role.Capabilities(r)}
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
