package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/role"
)

type contributionApi struct {
	svc *contribution.Service
}

func registerContributionAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := contributionApi{svc: deps.ContributionSvc}
	view := requireCapability(role.ViewFinances)
	manage := requireCapability(role.ManageFinances)

	cg := g.Group("/contributions", authed...)
	cg.GET("", api.query, view)
	cg.POST("", api.create, manage)
	cg.GET("/:id", api.retrieve, view)
	cg.DELETE("/:id", api.destroy, manage)
}

// Handlers

func (api *contributionApi) query(ctx echo.Context) error {
	filter := new(contribution.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	cs, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying contributions")
	}
	if cs == nil {
		cs = []contribution.Contribution{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *contributionApi) create(ctx echo.Context) error {
	var data contribution.NewContribution
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContribution")
	}

	c, err := api.svc.Create(ctx.Request().Context(), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "creating contribution")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *contributionApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding contribution by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contributionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), actor(ctx)); err != nil {
		return errors.Wrap(err, "deleting contribution")
	}
	return ctx.NoContent(http.StatusNoContent)
}
