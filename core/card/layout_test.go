package card_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mpiangona/core/card"
)

func TestPlace(t *testing.T) {
	tests := []struct {
		i    int
		want card.Placement
	}{
		{i: 0, want: card.Placement{Index: 0, Page: 0, Row: 0, Col: 0, X: 10, Y: 10}},
		{i: 1, want: card.Placement{Index: 1, Page: 0, Row: 0, Col: 1, X: 100.6, Y: 10}},
		{i: 2, want: card.Placement{Index: 2, Page: 0, Row: 1, Col: 0, X: 10, Y: 65.48}},
		{i: 9, want: card.Placement{Index: 9, Page: 0, Row: 4, Col: 1, X: 100.6, Y: 231.92}},
		{i: 10, want: card.Placement{Index: 10, Page: 1, Row: 0, Col: 0, X: 10, Y: 10}},
		{i: 23, want: card.Placement{Index: 23, Page: 2, Row: 1, Col: 1, X: 100.6, Y: 65.48}},
	}
	for _, tt := range tests {
		got := card.Place(tt.i)
		assert.Equal(t, tt.want.Page, got.Page, "page of %d", tt.i)
		assert.Equal(t, tt.want.Row, got.Row, "row of %d", tt.i)
		assert.Equal(t, tt.want.Col, got.Col, "col of %d", tt.i)
		assert.InDelta(t, tt.want.X, got.X, 1e-9, "x of %d", tt.i)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-9, "y of %d", tt.i)
	}
}

func TestPlace_FitsOnPage(t *testing.T) {
	last := card.Place(card.PerPage - 1)
	assert.LessOrEqual(t, last.X+card.Width, card.PageWidth-card.Margin)
	assert.LessOrEqual(t, last.Y+card.Height, card.PageHeight-card.Margin)
}

func TestPageCount(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 1, 10: 1, 11: 2, 20: 2, 23: 3} {
		assert.Equal(t, want, card.PageCount(n), "PageCount(%d)", n)
	}
}
