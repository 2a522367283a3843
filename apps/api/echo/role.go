package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
)

var errNoSelfDemotion = "you cannot remove your own administration rights"

type roleApi struct {
	svc   *role.Service
	users *user.Service
}

func registerRoleAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := roleApi{svc: deps.RoleSvc, users: deps.UserSvc}

	rg := g.Group("/roles", with(authed, requireCapability(role.ManageUsers))...)
	rg.GET("", api.query)
	rg.GET("/definitions", api.definitions)
	rg.GET("/stats", api.stats)
	rg.PUT("/:user_id", api.assign)
}

// Handlers

// query lists every user with their role.
func (api *roleApi) query(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	users, err := api.users.QueryAll(reqCtx)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}

	res := make([]UserRole, 0, len(users))
	for _, usr := range users {
		a, err := api.svc.Get(reqCtx, usr.ID)
		if err != nil {
			return errors.Wrap(err, "getting role assignment")
		}
		res = append(res, UserRole{User: usr, Role: a.Role, UpdatedAt: a.UpdatedAt})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *roleApi) definitions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, role.Definitions)
}

func (api *roleApi) stats(ctx echo.Context) error {
	stats, total, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing role stats")
	}
	return ctx.JSON(http.StatusOK, RoleStatsResponse{Total: total, Roles: stats})
}

func (api *roleApi) assign(ctx echo.Context) error {
	var data AssignRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRoleRequest")
	}
	r, err := role.Parse(data.Role)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "role", Error: err.Error()})
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.users.GetByID(reqCtx, ctx.Param("user_id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if sess := getContextSession(ctx); sess.UserID == usr.ID && !role.CanManageUsers(r) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoSelfDemotion})
	}

	a, err := api.svc.Upsert(reqCtx, usr.ID, r)
	if err != nil {
		return errors.Wrap(err, "assigning role")
	}
	return ctx.JSON(http.StatusOK, a)
}

type (
	UserRole struct {
		User      user.User `json:"user"`
		Role      role.Role `json:"role"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	RoleStatsResponse struct {
		Total int         `json:"total"`
		Roles []role.Stat `json:"roles"`
	}

	AssignRoleRequest struct {
		Role string `json:"role"`
	}
)
