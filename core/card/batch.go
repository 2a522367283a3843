package card

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/qrcode"
)

const DefaultWorkers = 4

// Renderer draws cards into a printable document.
type Renderer interface {
	RenderCard(w io.Writer, c Card) error
	RenderBatch(w io.Writer, b *Batch) error
}

type Placed struct {
	Placement
	Card
}

// Failure is a member left out of a batch.
type Failure struct {
	Index    int    `json:"index"` // in the input
	MemberID string `json:"member_id"`
	Err      error  `json:"-"`
}

// Batch holds the laid out cards. Members that failed are skipped and the
// remaining cards are placed densely, in input order.
type Batch struct {
	Cards    []Placed
	Pages    int
	Total    int
	Failures []Failure
}

// Err reports the partial failure of the batch, if any.
func (b *Batch) Err() error {
	if len(b.Failures) == 0 {
		return nil
	}
	return &core.RenderingError{What: "cards", Succeeded: len(b.Cards), Total: b.Total, Err: b.Failures[0].Err}
}

func (b *Batch) SkippedIDs() []string {
	ids := make([]string, 0, len(b.Failures))
	for _, f := range b.Failures {
		ids = append(ids, f.MemberID)
	}
	return ids
}

type Generator struct {
	raster  qrcode.Rasterizer
	workers int
	qrSize  int
	nowFn   func() time.Time
}

func NewGenerator(raster qrcode.Rasterizer, workers, qrSize int) *Generator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if qrSize <= 0 {
		qrSize = 256
	}
	return &Generator{raster: raster, workers: workers, qrSize: qrSize, nowFn: time.Now}
}

// Card composes the card of one member, with a freshly computed QR code.
func (g *Generator) Card(m member.Member) (Card, error) {
	payload, err := qrcode.Encode(qrcode.PayloadOf(m))
	if err != nil {
		return Card{}, &core.RenderingError{What: "card", Err: err}
	}
	png, err := g.raster.PNG(payload, g.qrSize)
	if err != nil {
		return Card{}, &core.RenderingError{What: "card", Err: errors.Wrap(err, "rendering qr code")}
	}
	return Compose(m, png, g.nowFn().Year()), nil
}

// Batch composes the cards of `members` on a bounded pool of workers.
// Only a cancelled context fails the whole batch.
func (g *Generator) Batch(ctx context.Context, members []member.Member) (*Batch, error) {
	type result struct {
		card Card
		err  error
	}
	results := make([]result, len(members))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range members {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			c, err := g.Card(members[i])
			results[i] = result{card: c, err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Batch{Total: len(members), Cards: make([]Placed, 0, len(members))}
	for i, res := range results {
		if res.err != nil {
			b.Failures = append(b.Failures, Failure{Index: i, MemberID: members[i].ID, Err: res.err})
			continue
		}
		b.Cards = append(b.Cards, Placed{Placement: Place(len(b.Cards)), Card: res.card})
	}
	b.Pages = PageCount(len(b.Cards))
	return b, nil
}
