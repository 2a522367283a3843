package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/role"
)

type groupApi struct {
	svc *group.Service
}

func registerGroupAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := groupApi{svc: deps.GroupSvc}
	view := requireCapability(role.ViewAdherents)
	manage := requireCapability(role.ManageAdherents)

	gg := g.Group("/groups", authed...)
	gg.GET("", api.query, view)
	gg.POST("", api.create, manage)

	// detail endpoints
	gg.GET("/:id", api.retrieve, view)
	gg.PUT("/:id", api.update, manage)
	gg.DELETE("/:id", api.destroy, manage)
	gg.GET("/:id/members", api.members, view)
	gg.POST("/:id/members/:member_id", api.addMember, manage)
	gg.DELETE("/:id/members/:member_id", api.removeMember, manage)
}

// Handlers

func (api *groupApi) query(ctx echo.Context) error {
	groups, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}

	grp, err := api.svc.Create(ctx.Request().Context(), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) update(ctx echo.Context) error {
	var data group.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}

	grp, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), actor(ctx)); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) members(ctx echo.Context) error {
	members, err := api.svc.Members(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying group members")
	}
	if members == nil {
		members = []member.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *groupApi) addMember(ctx echo.Context) error {
	err := api.svc.AddMember(ctx.Request().Context(), ctx.Param("id"), ctx.Param("member_id"), actor(ctx))
	if err != nil {
		return errors.Wrap(err, "adding group member")
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *groupApi) removeMember(ctx echo.Context) error {
	err := api.svc.RemoveMember(ctx.Request().Context(), ctx.Param("id"), ctx.Param("member_id"), actor(ctx))
	if err != nil {
		return errors.Wrap(err, "removing group member")
	}
	return ctx.NoContent(http.StatusNoContent)
}
