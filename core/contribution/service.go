package contribution

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/qrcode"
)

var (
	// errors
	ErrNotFound = errors.New("contribution not found")
)

type (
	Repository interface {
		CreateContribution(ctx context.Context, c Contribution) (Contribution, error)
		GetContributionByID(ctx context.Context, id string) (Contribution, error)
		// QueryContributions lists the matching contributions, most recent first.
		QueryContributions(ctx context.Context, filter QueryFilter) ([]Contribution, error)
		DeleteContribution(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		members  qrcode.MemberFinder
		bus      *event.Bus
		validate *validator.Validate
		nowFn    func() time.Time
	}
)

func NewService(repo Repository, members qrcode.MemberFinder, bus *event.Bus, validate *validator.Validate) *Service {
	return &Service{repo: repo, members: members, bus: bus, validate: validate, nowFn: time.Now}
}

func (svc *Service) Create(ctx context.Context, nc NewContribution, actor string) (Contribution, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Contribution{}, err
	}
	m, err := svc.members.GetByID(ctx, nc.MemberID)
	if err != nil {
		return Contribution{}, err
	}

	now := svc.nowFn().UTC()
	date := core.DateOf(now)
	if nc.Date != nil && !nc.Date.IsZero() {
		date = *nc.Date
	}
	c, err := svc.repo.CreateContribution(ctx, Contribution{
		MemberID:  nc.MemberID,
		Type:      nc.Type,
		Montant:   nc.Montant,
		Date:      date,
		CreatedAt: now,
	})
	if err != nil {
		return Contribution{}, err
	}
	c.Nom, c.Prenom = m.Nom, m.Prenom
	svc.publish(event.Insert, c, actor)
	return c, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Contribution, error) {
	return svc.repo.GetContributionByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Contribution, error) {
	filter.MemberID = core.CleanString(filter.MemberID)
	filter.Type = Type(core.CleanString(string(filter.Type), true /* lower */))
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryContributions(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, id string, actor string) error {
	c, err := svc.repo.GetContributionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteContribution(ctx, id); err != nil {
		return err
	}
	svc.publish(event.Delete, c, actor)
	return nil
}

func (svc *Service) publish(action event.Action, c Contribution, actor string) {
	label := c.Type.Label()
	if name := core.CleanString(c.Prenom + " " + c.Nom); name != "" {
		label += " de " + name
	}
	svc.bus.Publish(event.Change{Table: event.TableContributions, Action: action, ID: c.ID, Label: label, Actor: actor})
}
