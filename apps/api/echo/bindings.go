package echoapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/report"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Window is the date range of a report: either ?from=&to= or a trailing ?period=.
type Window struct {
	Period   report.PeriodKind
	From, To time.Time
}

func (w *Window) Bind(ctx echo.Context, now time.Time) error {
	kind, ok := report.ParsePeriod(ctx.QueryParam("period"))
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "period", Error: "must be one of month, trimester, year"})
	}
	w.Period = kind
	w.From, w.To = report.Period(kind, now)

	if from := ctx.QueryParam("from"); from != "" {
		d, err := core.ParseDate(from)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "from", Error: "invalid date"})
		}
		w.From = d.Time
	}
	if to := ctx.QueryParam("to"); to != "" {
		d, err := core.ParseDate(to)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "to", Error: "invalid date"})
		}
		w.To = d.Time
	}
	if w.To.Before(w.From) {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: "must not be before from"})
	}
	if w.To.After(w.From.AddDate(report.MaxSpanYears, 0, 0)) {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: fmt.Sprintf("must be within %d years of from", report.MaxSpanYears)})
	}
	return nil
}

// queryInt reads an integer query param, `def` when absent.
func queryInt(ctx echo.Context, name string, def int) (int, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be an integer"})
	}
	return n, nil
}
