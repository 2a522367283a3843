package report_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
	"github.com/trezcool/mpiangona/core/report"
	"github.com/trezcool/mpiangona/testutil"
)

type contributions []contribution.Contribution

func (cs contributions) Query(_ context.Context, filter contribution.QueryFilter) ([]contribution.Contribution, error) {
	var out []contribution.Contribution
	for _, c := range cs {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

type duesRecords []dues.Record

func (rs duesRecords) Query(_ context.Context, filter dues.QueryFilter) ([]dues.Record, error) {
	var out []dues.Record
	for _, r := range rs {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

type renderer struct {
	err  error
	docs []report.Document
}

func (r *renderer) RenderReport(w io.Writer, doc report.Document) error {
	if r.err != nil {
		return r.err
	}
	r.docs = append(r.docs, doc)
	_, err := io.WriteString(w, "%PDF-1.3 "+doc.Title)
	return err
}

func TestService(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	cs := contributions{
		contrib("m1", "A", contribution.Dime, 1000, 2024, time.June, 1),
		contrib("m2", "B", contribution.Offrande, 300, 2024, time.May, 20),
		contrib("m2", "B", contribution.Don, 200, 2024, time.May, 10), // before the monthly window
		contrib("m3", "C", contribution.Don, 5000, 2023, time.April, 1),
	}
	rs := duesRecords{
		{MemberID: "m1", Mois: 6, Annee: 2024, Montant: 500, Paye: true},
		{MemberID: "m2", Mois: 6, Annee: 2024, Montant: 500},
		{MemberID: "m1", Mois: 5, Annee: 2024, Montant: 500, Paye: true},
	}
	rdr := &renderer{}
	mailer := testutil.NewMailer()
	svc := report.NewService(cs, rs, rdr, mailer)
	report.SetNowFn(svc, func() time.Time { return now })
	ctx := context.Background()

	t.Run("period", func(t *testing.T) {
		got, from, to, err := svc.ForPeriod(ctx, report.PeriodMonth)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC), from)
		assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), to)
		assert.Len(t, got, 2)

		got, _, _, err = svc.ForPeriod(ctx, report.PeriodYear)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("monthly", func(t *testing.T) {
		buckets, err := svc.Monthly(ctx)
		require.NoError(t, err)
		require.Len(t, buckets, 12)
		assert.Equal(t, int64(1000), buckets[11].Total)
		assert.Equal(t, int64(500), buckets[10].Total)
		assert.Equal(t, int64(0), buckets[0].Total, "April 2023 is out of the window")
	})

	t.Run("dues", func(t *testing.T) {
		st, err := svc.Dues(ctx, 6, 2024)
		require.NoError(t, err)
		assert.Equal(t, report.DuesStats{Records: 2, Paid: 1, PaidAmount: 500, PaymentRate: 50}, st)
	})

	t.Run("send", func(t *testing.T) {
		assert.Error(t, svc.Send(ctx, report.PeriodMonth, nil))

		to := []mail.Address{{Name: "Tresorier", Address: "tresorier@fjkm.mg"}}
		require.NoError(t, svc.Send(ctx, report.PeriodMonth, to))
		sent := mailer.Sent()
		require.Len(t, sent, 1)
		msg := sent[0]
		assert.Equal(t, "financial_report", msg.TemplateName)
		assert.Equal(t, "FJKM - Rapport Financier", msg.Subject)
		data := msg.TemplateData.(map[string]interface{})
		assert.Equal(t, int64(1300), data["Total"])
		assert.Equal(t, "15/05/2024 - 15/06/2024", data["Period"])

		require.Len(t, msg.Attachments, 1)
		at := msg.Attachments[0]
		assert.Equal(t, "rapport_financier_2024-06-15.pdf", at.Filename)
		assert.Equal(t, "application/pdf", at.ContentType)
		pdf, err := base64.StdEncoding.DecodeString(at.Content.String())
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.3 FJKM - Rapport Financier", string(pdf))

		require.Len(t, rdr.docs, 1)
		assert.Equal(t, "m1", rdr.docs[0].Top[0].MemberID)
	})

	t.Run("render failure", func(t *testing.T) {
		rdr.err = errors.New("font missing")
		err := svc.Send(ctx, report.PeriodMonth, []mail.Address{{Address: "tresorier@fjkm.mg"}})
		var rerr *core.RenderingError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "report", rerr.What)
		assert.Len(t, mailer.Sent(), 1)
	})
}
