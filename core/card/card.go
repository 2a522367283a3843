package card

import (
	"strconv"

	"github.com/trezcool/mpiangona/core/member"
)

type RGB struct {
	R, G, B uint8
}

var (
	Blue  = RGB{41, 128, 185}
	White = RGB{255, 255, 255}
)

type Kind int

const (
	KindRect Kind = iota
	KindLine
	KindText
	KindImage
)

// Element is one drawing instruction, relative to the top-left corner of the card.
// Text elements are positioned on their baseline.
type Element struct {
	Kind     Kind
	X, Y     float64
	W, H     float64 // rect, image; line end is (X+W, Y+H)
	Color    RGB
	Text     string
	FontSize float64 // pt
	Bold     bool
	Image    []byte // PNG
}

// Card is the composed face of one member card.
type Card struct {
	MemberID string
	Elements []Element
}

// Texts returns the text elements in drawing order.
func (c Card) Texts() []Element {
	var out []Element
	for _, el := range c.Elements {
		if el.Kind == KindText {
			out = append(out, el)
		}
	}
	return out
}

// Layout of the card face
const (
	Title         = "FJKM VATOMANDRY"
	Subtitle      = "Fiangonan'i Jesosy Kristy eto Madagasikara"
	Footer        = "Carte membre FJKM"
	NameY         = 26.0
	DetailsY      = 31.0
	DetailsStep   = 4.0
	QRX, QRY      = 58.0, 20.0
	QRSize        = 25.0
	FooterY       = 48.0
	YearY         = 52.0
	textX         = 5.0
	titleX        = 20.0
	titleY        = 10.0
	subtitleY     = 15.0
	separatorY    = 19.0
	separatorEndX = 80.0
)

// Details returns the optional lines printed under the name; absent fields are skipped.
func Details(m member.Member) []string {
	var lines []string
	add := func(label string, v string, ok bool) {
		if ok && v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Fonction", m.FonctionEglise.String, m.FonctionEglise.Valid)
	add("Quartier", m.Quartier.String, m.Quartier.Valid)
	add("Sampana", m.SampanaName.String, m.SampanaName.Valid)
	add("Tél", m.Telephone.String, m.Telephone.Valid)
	return lines
}

// Compose builds the card of `m` with its rendered QR code.
func Compose(m member.Member, qrPNG []byte, year int) Card {
	els := []Element{
		{Kind: KindRect, W: Width, H: Height, Color: Blue},
		{Kind: KindText, X: titleX, Y: titleY, Text: Title, FontSize: 11, Bold: true, Color: White},
		{Kind: KindText, X: titleX, Y: subtitleY, Text: Subtitle, FontSize: 7, Color: White},
		{Kind: KindLine, X: textX, Y: separatorY, W: separatorEndX - textX, Color: White},
		{Kind: KindText, X: textX, Y: NameY, Text: m.Nom + " " + m.Prenom, FontSize: 10, Bold: true, Color: White},
	}

	y := DetailsY
	for _, line := range Details(m) {
		els = append(els, Element{Kind: KindText, X: textX, Y: y, Text: line, FontSize: 8, Color: White})
		y += DetailsStep
	}

	els = append(els,
		Element{Kind: KindImage, X: QRX, Y: QRY, W: QRSize, H: QRSize, Image: qrPNG},
		Element{Kind: KindText, X: textX, Y: FooterY, Text: Footer, FontSize: 6, Color: White},
		Element{Kind: KindText, X: textX, Y: YearY, Text: strconv.Itoa(year), FontSize: 6, Color: White},
	)
	return Card{MemberID: m.ID, Elements: els}
}
