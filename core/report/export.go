package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core/contribution"
)

var csvHeader = []string{"Date", "Nom", "Prénom", "Type", "Montant"}

// WriteCSV exports the contributions in the given order followed by a summary block.
func WriteCSV(w io.Writer, cs []contribution.Contribution, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, c := range cs {
		row := []string{c.Date.Format("02/01/2006"), c.Nom, c.Prenom, string(c.Type), strconv.FormatInt(c.Montant, 10)}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}

	summary := [][]string{
		{},
		{"Résumé"},
		{"Total Dîmes", strconv.FormatInt(s.ByType.Amount(contribution.Dime), 10)},
		{"Total Offrandes", strconv.FormatInt(s.ByType.Amount(contribution.Offrande), 10)},
		{"Total Dons", strconv.FormatInt(s.ByType.Amount(contribution.Don), 10)},
		{"Total Général", strconv.FormatInt(s.Total, 10)},
		{"Nombre", strconv.Itoa(s.Count)},
	}
	if err := cw.WriteAll(summary); err != nil {
		return errors.Wrap(err, "writing csv summary")
	}
	return nil
}

// Document is the printable financial report of a period.
type Document struct {
	Title       string
	From, To    time.Time
	Summary     Summary
	Top         []Contributor
	GeneratedAt time.Time
}

func FinancialDocument(cs []contribution.Contribution, from, to, now time.Time) Document {
	return Document{
		Title:       "FJKM - Rapport Financier",
		From:        from,
		To:          to,
		Summary:     Summarize(cs),
		Top:         TopContributors(cs, DefaultTop),
		GeneratedAt: now,
	}
}

// Renderer draws a financial report.
type Renderer interface {
	RenderReport(w io.Writer, doc Document) error
}
