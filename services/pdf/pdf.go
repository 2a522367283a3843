// Package pdfsvc draws member cards and financial reports with go-pdf/fpdf.
package pdfsvc

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core/card"
	"github.com/trezcool/mpiangona/core/report"
)

const font = "Helvetica"

type Renderer struct {
	author string
}

var (
	_ card.Renderer   = (*Renderer)(nil)
	_ report.Renderer = (*Renderer)(nil)
)

func NewRenderer(author string) *Renderer {
	return &Renderer{author: author}
}

func (r Renderer) newDoc(size fpdf.SizeType) *fpdf.Fpdf {
	pdf := fpdf.NewCustom(&fpdf.InitType{OrientationStr: "P", UnitStr: "mm", Size: size})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetAuthor(r.author, true)
	return pdf
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Error(); err != nil {
		return errors.Wrap(err, "drawing pdf")
	}
	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing pdf")
	}
	return nil
}

// RenderCard writes one card on a page of the card's size.
func (r Renderer) RenderCard(w io.Writer, c card.Card) error {
	pdf := r.newDoc(fpdf.SizeType{Wd: card.Width, Ht: card.Height})
	pdf.SetTitle("Carte membre", true)
	pdf.AddPage()
	drawCard(pdf, c, 0, 0, "qr-0")
	return output(pdf, w)
}

// RenderBatch writes the placed cards on A4 pages, with a thin cutting frame around each card.
func (r Renderer) RenderBatch(w io.Writer, b *card.Batch) error {
	pdf := r.newDoc(fpdf.SizeType{Wd: card.PageWidth, Ht: card.PageHeight})
	pdf.SetTitle("Cartes membres", true)
	page := -1
	for _, p := range b.Cards {
		for page < p.Page {
			pdf.AddPage()
			page++
		}
		drawCard(pdf, p.Card, p.X, p.Y, "qr-"+strconv.Itoa(p.Index))
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetLineWidth(0.1)
		pdf.Rect(p.X, p.Y, card.Width, card.Height, "D")
	}
	if page < 0 {
		pdf.AddPage()
	}
	return output(pdf, w)
}

func drawCard(pdf *fpdf.Fpdf, c card.Card, x, y float64, imgName string) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, el := range c.Elements {
		switch el.Kind {
		case card.KindRect:
			pdf.SetFillColor(int(el.Color.R), int(el.Color.G), int(el.Color.B))
			pdf.Rect(x+el.X, y+el.Y, el.W, el.H, "F")
		case card.KindLine:
			pdf.SetDrawColor(int(el.Color.R), int(el.Color.G), int(el.Color.B))
			pdf.SetLineWidth(0.5)
			pdf.Line(x+el.X, y+el.Y, x+el.X+el.W, y+el.Y+el.H)
		case card.KindText:
			style := ""
			if el.Bold {
				style = "B"
			}
			pdf.SetFont(font, style, el.FontSize)
			pdf.SetTextColor(int(el.Color.R), int(el.Color.G), int(el.Color.B))
			pdf.Text(x+el.X, y+el.Y, tr(el.Text))
		case card.KindImage:
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(el.Image))
			pdf.ImageOptions(imgName, x+el.X, y+el.Y, el.W, el.H, false, opts, 0, "")
		}
	}
}

var months = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate formats `t` the French way, e.g. "15 juin 2024".
func FormatDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + months[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// FormatAmount groups thousands with spaces, e.g. "12 500 Ar".
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(d)
	}
	sb.WriteString(" Ar")
	return sb.String()
}

// RenderReport writes the financial report of a period on one A4 page.
func (r Renderer) RenderReport(w io.Writer, doc report.Document) error {
	pdf := r.newDoc(fpdf.SizeType{Wd: card.PageWidth, Ht: card.PageHeight})
	pdf.SetTitle(doc.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	centered := func(y, size float64, text string) {
		pdf.SetFont(font, "", size)
		pdf.SetXY(0, y)
		pdf.CellFormat(card.PageWidth, 8, tr(text), "", 0, "C", false, 0, "")
	}
	line := func(x, y float64, text string) {
		pdf.Text(x, y, tr(text))
	}

	pdf.SetTextColor(0, 0, 0)
	centered(15, 20, doc.Title)
	centered(30, 12, "Période: "+FormatDate(doc.From)+" - "+FormatDate(doc.To))

	pdf.SetFont(font, "B", 14)
	line(20, 55, "Résumé Financier")

	pdf.SetFont(font, "", 11)
	y := 70.0
	line(30, y, "Total des contributions: "+FormatAmount(doc.Summary.Total))
	y += 10
	line(30, y, "Répartition par type:")
	for _, s := range doc.Summary.ByType.Shares {
		y += 8
		line(40, y, "- "+s.Label+"s: "+FormatAmount(s.Amount)+" ("+strconv.FormatFloat(s.Percent, 'f', 2, 64)+" %)")
	}
	y += 15
	line(30, y, "Nombre total de contributions: "+strconv.Itoa(doc.Summary.Count))
	y += 10
	line(30, y, "Contribution moyenne: "+FormatAmount(int64(doc.Summary.Average+0.5)))

	if len(doc.Top) > 0 {
		y += 20
		pdf.SetFont(font, "B", 14)
		line(20, y, "Principaux contributeurs")
		pdf.SetFont(font, "", 11)
		for i, c := range doc.Top {
			y += 8
			line(30, y, strconv.Itoa(i+1)+". "+c.Nom+" "+c.Prenom+": "+FormatAmount(c.Total)+" ("+strconv.Itoa(c.Count)+")")
		}
	}

	pdf.SetFont(font, "", 10)
	pdf.SetXY(0, 276)
	pdf.CellFormat(card.PageWidth, 6, tr("Généré le "+doc.GeneratedAt.Format("02/01/2006 à 15:04")), "", 0, "C", false, 0, "")
	return output(pdf, w)
}
