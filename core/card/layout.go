// Package card composes member cards and lays them out on A4 sheets for printing.
// Every length is in millimetres.
package card

import "math"

// Geometry
const (
	Width      = 85.6
	Height     = 53.98
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 10.0
	Gutter     = 5.0 // between columns
	RowGutter  = 1.5 // between rows; five rows must fit within the margins
	Cols       = 2
	Rows       = 5
	PerPage    = Cols * Rows
)

// Placement is the position of a card in a batch. Page, Row and Col are 0-based.
type Placement struct {
	Index int     `json:"index"`
	Page  int     `json:"page"`
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Place returns where the card at `i` goes: row-major within its page, a new page every PerPage cards.
func Place(i int) Placement {
	pos := i % PerPage
	p := Placement{
		Index: i,
		Page:  i / PerPage,
		Row:   pos / Cols,
		Col:   pos % Cols,
	}
	p.X = Margin + float64(p.Col)*(Width+Gutter)
	p.Y = Margin + float64(p.Row)*(Height+RowGutter)
	return p
}

func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / PerPage))
}
