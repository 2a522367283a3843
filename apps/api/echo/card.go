package echoapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/card"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/qrcode"
	"github.com/trezcool/mpiangona/core/role"
)

const (
	headerCardsSkipped = "X-Cards-Skipped"
	headerCardsTotal   = "X-Cards-Total"
	mimePDF            = "application/pdf"
	mimePNG            = "image/png"
)

type cardApi struct {
	members  *member.Service
	cards    *card.Generator
	renderer card.Renderer
	qr       qrcode.Rasterizer
	qrSize   int
	metrics  Metrics
	logger   core.Logger
}

func registerCardAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := cardApi{
		members:  deps.MemberSvc,
		cards:    deps.Cards,
		renderer: deps.CardRenderer,
		qr:       deps.QR,
		qrSize:   deps.Conf.Cards.QRSize,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
	manage := requireCapability(role.ManageAdherents)

	g.GET("/members/:id/qr", api.qrCode, with(authed, manage)...)
	g.GET("/members/:id/card", api.card, with(authed, manage)...)
	g.Group("/cards", authed...).POST("", api.batch, manage)
}

// Handlers

func (api *cardApi) qrCode(ctx echo.Context) error {
	m, err := api.members.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding member by ID")
	}
	payload, err := qrcode.Encode(qrcode.PayloadOf(m))
	if err != nil {
		return &core.RenderingError{What: "card", Err: err}
	}
	png, err := api.qr.PNG(payload, api.qrSize)
	if err != nil {
		return &core.RenderingError{What: "card", Err: err}
	}
	return ctx.Blob(http.StatusOK, mimePNG, png)
}

func (api *cardApi) card(ctx echo.Context) error {
	m, err := api.members.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding member by ID")
	}
	c, err := api.cards.Card(m)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := api.renderer.RenderCard(&buf, c); err != nil {
		return &core.RenderingError{What: "card", Err: err}
	}
	api.observe(1, 0)
	return attachment(ctx, mimePDF, "carte_"+m.Nom+"_"+m.Prenom+".pdf", buf.Bytes())
}

// batch lays out the cards of the requested members (all members when none is given) on A4 pages.
// Members whose card could not be generated are skipped and listed in X-Cards-Skipped.
func (api *cardApi) batch(ctx echo.Context) error {
	var data CardsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CardsRequest")
	}
	reqCtx := ctx.Request().Context()

	var members []member.Member
	if len(data.IDs) == 0 {
		var err error
		if members, err = api.members.Query(reqCtx, member.QueryFilter{}); err != nil {
			return errors.Wrap(err, "querying members")
		}
	} else {
		members = make([]member.Member, 0, len(data.IDs))
		for _, id := range data.IDs {
			m, err := api.members.GetByID(reqCtx, id)
			if err != nil {
				return errors.Wrapf(err, "finding member %s", id)
			}
			members = append(members, m)
		}
	}
	if len(members) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "ids", Error: "no member to print"})
	}

	b, err := api.cards.Batch(reqCtx, members)
	if err != nil {
		return errors.Wrap(err, "generating cards")
	}
	api.observe(len(b.Cards), len(b.Failures))
	if len(b.Cards) == 0 {
		return b.Err()
	}
	if bErr := b.Err(); bErr != nil {
		api.logger.Warn(bErr.Error(), bErr, contextUser(ctx))
	}

	var buf bytes.Buffer
	if err := api.renderer.RenderBatch(&buf, b); err != nil {
		return &core.RenderingError{What: "cards", Total: b.Total, Err: err}
	}

	h := ctx.Response().Header()
	h.Set(headerCardsTotal, strconv.Itoa(b.Total))
	if skipped := b.SkippedIDs(); len(skipped) > 0 {
		h.Set(headerCardsSkipped, strings.Join(skipped, ","))
	}
	return attachment(ctx, mimePDF, "cartes_membres.pdf", buf.Bytes())
}

func (api *cardApi) observe(rendered, skipped int) {
	if api.metrics != nil {
		api.metrics.CardsRendered(rendered, skipped)
	}
}

type CardsRequest struct {
	IDs []string `json:"ids"`
}
