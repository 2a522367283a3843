package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core/dues"
	"github.com/trezcool/mpiangona/core/report"
	"github.com/trezcool/mpiangona/core/role"
)

type duesApi struct {
	svc     *dues.Service
	reports *report.Service
}

func registerDuesAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := duesApi{svc: deps.DuesSvc, reports: deps.ReportSvc}
	view := requireCapability(role.ViewFinances)
	manage := requireCapability(role.ManageFinances)

	dg := g.Group("/dues", authed...)
	dg.GET("", api.query, view)
	dg.GET("/stats", api.stats, view)
	dg.PUT("", api.upsert, manage)
	dg.POST("/scan", api.scan, manage)
}

// Handlers

func (api *duesApi) query(ctx echo.Context) error {
	filter := new(dues.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []dues.Record{})
	}

	records, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying dues")
	}
	if records == nil {
		records = []dues.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

// stats summarizes one period, the current month by default.
func (api *duesApi) stats(ctx echo.Context) error {
	now := api.reports.Now()
	mois, err := queryInt(ctx, "mois", int(now.Month()))
	if err != nil {
		return err
	}
	annee, err := queryInt(ctx, "annee", now.Year())
	if err != nil {
		return err
	}

	st, err := api.reports.Dues(ctx.Request().Context(), mois, annee)
	if err != nil {
		return errors.Wrap(err, "computing dues stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *duesApi) upsert(ctx echo.Context) error {
	var data dues.Upsert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Upsert")
	}

	r, err := api.svc.UpsertByPeriod(ctx.Request().Context(), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "saving dues")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *duesApi) scan(ctx echo.Context) error {
	var data ScanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScanRequest")
	}

	res, err := api.svc.ScanPayment(ctx.Request().Context(), data.Data, data.Montant, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "recording scanned payment")
	}
	return ctx.JSON(http.StatusOK, res)
}

// ScanRequest carries the raw text read from a member card. Montant defaults to dues.DefaultAmount.
type ScanRequest struct {
	Data    string `json:"data"`
	Montant int64  `json:"montant"`
}
