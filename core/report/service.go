package report

import (
	"bytes"
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
)

type (
	ContributionQuerier interface {
		Query(ctx context.Context, filter contribution.QueryFilter) ([]contribution.Contribution, error)
	}

	DuesQuerier interface {
		Query(ctx context.Context, filter dues.QueryFilter) ([]dues.Record, error)
	}

	Service struct {
		contributions ContributionQuerier
		dues          DuesQuerier
		renderer      Renderer
		mailSvc       core.EmailService
		nowFn         func() time.Time
	}
)

func NewService(contributions ContributionQuerier, dues DuesQuerier, renderer Renderer, mailSvc core.EmailService) *Service {
	return &Service{contributions: contributions, dues: dues, renderer: renderer, mailSvc: mailSvc, nowFn: time.Now}
}

func (svc *Service) Now() time.Time { return svc.nowFn().UTC() }

// Between lists the contributions dated within [from, to].
func (svc *Service) Between(ctx context.Context, from, to time.Time) ([]contribution.Contribution, error) {
	f, t := core.DateOf(from), core.DateOf(to)
	return svc.contributions.Query(ctx, contribution.QueryFilter{From: &f, To: &t})
}

// ForPeriod lists the contributions of the trailing period ending today.
func (svc *Service) ForPeriod(ctx context.Context, kind PeriodKind) ([]contribution.Contribution, time.Time, time.Time, error) {
	from, to := Period(kind, svc.Now())
	cs, err := svc.Between(ctx, from, to)
	return cs, from, to, err
}

func (svc *Service) Monthly(ctx context.Context) ([]MonthBucket, error) {
	now := svc.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	cs, err := svc.Between(ctx, from, now)
	if err != nil {
		return nil, err
	}
	return Monthly(cs, now), nil
}

func (svc *Service) Dues(ctx context.Context, mois, annee int) (DuesStats, error) {
	records, err := svc.dues.Query(ctx, dues.QueryFilter{Mois: mois, Annee: annee})
	if err != nil {
		return DuesStats{}, err
	}
	return ComputeDuesStats(records), nil
}

// RenderPeriod renders the PDF report of a period into `buf`.
func (svc *Service) RenderPeriod(ctx context.Context, kind PeriodKind, buf *bytes.Buffer) (Document, error) {
	cs, from, to, err := svc.ForPeriod(ctx, kind)
	if err != nil {
		return Document{}, err
	}
	doc := FinancialDocument(cs, from, to, svc.Now())
	if err := svc.renderer.RenderReport(buf, doc); err != nil {
		return Document{}, &core.RenderingError{What: "report", Err: err}
	}
	return doc, nil
}

// Send emails the PDF report of a period to `to`.
func (svc *Service) Send(ctx context.Context, kind PeriodKind, to []mail.Address) error {
	if len(to) == 0 {
		return errors.New("no recipient")
	}
	var buf bytes.Buffer
	doc, err := svc.RenderPeriod(ctx, kind, &buf)
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:           to,
		Subject:      doc.Title,
		TemplateName: "financial_report",
		TemplateData: map[string]interface{}{
			"Period":    doc.From.Format("02/01/2006") + " - " + doc.To.Format("02/01/2006"),
			"Total":     doc.Summary.Total,
			"Tithes":    doc.Summary.ByType.Amount(contribution.Dime),
			"Offerings": doc.Summary.ByType.Amount(contribution.Offrande),
			"Gifts":     doc.Summary.ByType.Amount(contribution.Don),
			"Count":     doc.Summary.Count,
		},
	}
	filename := "rapport_financier_" + doc.GeneratedAt.Format("2006-01-02") + ".pdf"
	if err := msg.Attach(&buf, filename, "application/pdf"); err != nil {
		return errors.Wrap(err, "attaching report")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}
