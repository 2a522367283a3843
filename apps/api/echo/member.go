package echoapi

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/role"
)

type memberApi struct {
	svc    *member.Service
	groups *group.Service
}

func registerMemberAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := memberApi{svc: deps.MemberSvc, groups: deps.GroupSvc}
	view := requireCapability(role.ViewAdherents)
	manage := requireCapability(role.ManageAdherents)

	g.Group("/sampana", authed...).GET("", api.listSampana, view)

	mg := g.Group("/members", authed...)
	mg.GET("", api.query, view)
	mg.POST("", api.create, manage)
	mg.GET("/export", api.export, manage)
	mg.GET("/stats", api.stats, manage)

	// detail endpoints
	mg.GET("/:id", api.retrieve, view)
	mg.PUT("/:id", api.update, manage)
	mg.DELETE("/:id", api.destroy, manage)
	mg.GET("/:id/groups", api.groupsOf, view)
}

// Handlers

func (api *memberApi) query(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []member.Member{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []member.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *memberApi) create(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}

	m, err := api.svc.Create(ctx.Request().Context(), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	m, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding member by ID")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) update(ctx echo.Context) error {
	var data member.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}

	m, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), actor(ctx)); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) groupsOf(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if _, err := api.svc.GetByID(reqCtx, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding member by ID")
	}
	groups, err := api.groups.GroupsOf(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying member groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *memberApi) export(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	members, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	var buf bytes.Buffer
	if err := member.WriteCSV(&buf, members); err != nil {
		return errors.Wrap(err, "exporting members")
	}
	return attachment(ctx, "text/csv; charset=utf-8", "adherents.csv", buf.Bytes())
}

func (api *memberApi) stats(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	st, err := api.svc.Stats(reqCtx)
	if err != nil {
		return errors.Wrap(err, "computing member stats")
	}
	if st.GroupCount, err = api.groups.Count(reqCtx); err != nil {
		return errors.Wrap(err, "counting groups")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *memberApi) listSampana(ctx echo.Context) error {
	sampana, err := api.svc.ListSampana(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing sampana")
	}
	if sampana == nil {
		sampana = []member.Sampana{}
	}
	return ctx.JSON(http.StatusOK, sampana)
}

// attachment sends `data` as a downloadable file.
func attachment(ctx echo.Context, contentType, filename string, data []byte) error {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return ctx.Blob(http.StatusOK, contentType, data)
}
