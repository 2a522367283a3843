package echoapi

import (
	"bytes"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/report"
	"github.com/trezcool/mpiangona/core/role"
)

type reportApi struct {
	svc      *report.Service
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{svc: deps.ReportSvc, validate: deps.Validate}

	rg := g.Group("/reports", with(authed, requireCapability(role.ViewFinances))...)
	rg.GET("/by-type", api.byType)
	rg.GET("/monthly", api.monthly)
	rg.GET("/top", api.top)
	rg.GET("/period", api.period)
	rg.GET("/export.csv", api.exportCSV)
	rg.GET("/financial.pdf", api.financialPDF)
	rg.POST("/financial/send", api.send)
}

func (api *reportApi) contributions(ctx echo.Context) ([]contribution.Contribution, Window, error) {
	var w Window
	if err := w.Bind(ctx, api.svc.Now()); err != nil {
		return nil, w, err
	}
	cs, err := api.svc.Between(ctx.Request().Context(), w.From, w.To)
	if err != nil {
		return nil, w, errors.Wrap(err, "querying contributions")
	}
	return cs, w, nil
}

// Handlers

func (api *reportApi) byType(ctx echo.Context) error {
	cs, _, err := api.contributions(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.ByType(cs))
}

// monthly returns the last 12 months, or one bucket per month of ?from=&to=.
func (api *reportApi) monthly(ctx echo.Context) error {
	if ctx.QueryParam("from") == "" && ctx.QueryParam("to") == "" {
		buckets, err := api.svc.Monthly(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "aggregating months")
		}
		return ctx.JSON(http.StatusOK, buckets)
	}

	cs, w, err := api.contributions(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.Range(cs, w.From, w.To))
}

func (api *reportApi) top(ctx echo.Context) error {
	n, err := queryInt(ctx, "n", report.DefaultTop)
	if err != nil {
		return err
	}
	cs, _, err := api.contributions(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.TopContributors(cs, n))
}

func (api *reportApi) period(ctx echo.Context) error {
	cs, w, err := api.contributions(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, PeriodResponse{
		Period:  w.Period,
		From:    core.DateOf(w.From),
		To:      core.DateOf(w.To),
		Summary: report.Summarize(cs),
		Top:     report.TopContributors(cs, report.DefaultTop),
	})
}

func (api *reportApi) exportCSV(ctx echo.Context) error {
	cs, w, err := api.contributions(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, cs, report.Summarize(cs)); err != nil {
		return errors.Wrap(err, "exporting contributions")
	}
	filename := "rapport_financier_" + string(w.Period) + "_" + api.svc.Now().Format("2006-01-02") + ".csv"
	return attachment(ctx, "text/csv; charset=utf-8", filename, buf.Bytes())
}

func (api *reportApi) financialPDF(ctx echo.Context) error {
	kind, ok := report.ParsePeriod(ctx.QueryParam("period"))
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "period", Error: "must be one of month, trimester, year"})
	}
	var buf bytes.Buffer
	doc, err := api.svc.RenderPeriod(ctx.Request().Context(), kind, &buf)
	if err != nil {
		return errors.Wrap(err, "rendering financial report")
	}
	return attachment(ctx, mimePDF, "rapport_financier_"+doc.GeneratedAt.Format("2006-01-02")+".pdf", buf.Bytes())
}

func (api *reportApi) send(ctx echo.Context) error {
	var data SendReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendReportRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	kind, ok := report.ParsePeriod(data.Period)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "period", Error: "must be one of month, trimester, year"})
	}

	to := make([]mail.Address, 0, len(data.To))
	for _, addr := range data.To {
		to = append(to, mail.Address{Address: core.CleanString(addr, true /* lower */)})
	}
	if err := api.svc.Send(ctx.Request().Context(), kind, to); err != nil {
		return errors.Wrap(err, "sending financial report")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "Le rapport financier a été envoyé."})
}

type (
	PeriodResponse struct {
		Period  report.PeriodKind    `json:"period"`
		From    core.Date            `json:"from"`
		To      core.Date            `json:"to"`
		Summary report.Summary       `json:"summary"`
		Top     []report.Contributor `json:"top"`
	}

	SendReportRequest struct {
		Period string   `json:"period"`
		To     []string `json:"to" validate:"required,min=1,dive,email"`
	}
)
