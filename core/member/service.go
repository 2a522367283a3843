package member

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
)

var (
	// errors
	ErrNotFound = errors.New("member not found")
)

type (
	Repository interface {
		CreateMember(ctx context.Context, m Member) (Member, error)
		GetMemberByID(ctx context.Context, id string) (Member, error)
		// QueryMembers applies QueryFilter.Matches semantics. Default ordering: nom, prenom.
		QueryMembers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Member, error)
		UpdateMember(ctx context.Context, m Member) (Member, error)
		DeleteMember(ctx context.Context, id string) error
		ListSampana(ctx context.Context) ([]Sampana, error)
	}

	// Memberships is the slice of the group repository members need.
	Memberships interface {
		AddMemberships(ctx context.Context, memberID string, groupIDs ...string) error
		DeleteMembershipsByMember(ctx context.Context, memberID string) error
	}

	Service struct {
		repo        Repository
		memberships Memberships
		bus         *event.Bus
		validate    *validator.Validate
		nowFn       func() time.Time
	}
)

func NewService(repo Repository, memberships Memberships, bus *event.Bus, validate *validator.Validate) *Service {
	return &Service{repo: repo, memberships: memberships, bus: bus, validate: validate, nowFn: time.Now}
}

func (svc *Service) Create(ctx context.Context, nm NewMember, actor string) (Member, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Member{}, err
	}

	now := svc.nowFn().UTC()
	inscription := core.DateOf(now)
	if nm.DateInscription != nil && !nm.DateInscription.IsZero() {
		inscription = *nm.DateInscription
	}
	m, err := svc.repo.CreateMember(ctx, Member{
		Nom:             nm.Nom,
		Prenom:          nm.Prenom,
		Sexe:            nm.Sexe,
		DateNaissance:   nm.DateNaissance,
		Adresse:         nm.Adresse,
		Quartier:        nm.Quartier,
		Telephone:       nm.Telephone,
		Email:           nm.Email,
		FonctionEglise:  nm.FonctionEglise,
		EtatCivil:       nm.EtatCivil,
		Mpandray:        nm.Mpandray,
		Faritra:         nm.Faritra,
		SampanaID:       nm.SampanaID,
		DateInscription: inscription,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Member{}, err
	}

	if len(nm.GroupIDs) > 0 && svc.memberships != nil {
		if err := svc.memberships.AddMemberships(ctx, m.ID, nm.GroupIDs...); err != nil {
			// the member is only kept with all of its groups
			if undoErr := svc.undoCreate(ctx, m.ID); undoErr != nil {
				return Member{}, pkgerrors.Wrapf(err, "adding memberships (undo failed: %v)", undoErr)
			}
			return Member{}, pkgerrors.Wrap(err, "adding memberships")
		}
	}
	svc.publish(event.Insert, m, actor)
	return m, nil
}

func (svc *Service) undoCreate(ctx context.Context, id string) error {
	if err := svc.memberships.DeleteMembershipsByMember(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteMember(ctx, id)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMemberByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Member, error) {
	filter.Clean()
	return svc.repo.QueryMembers(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, id string, um UpdateMember, actor string) (Member, error) {
	if err := um.Validate(svc.validate); err != nil {
		return Member{}, err
	}
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}

	m = um.apply(m)
	m.UpdatedAt = svc.nowFn().UTC()
	if m, err = svc.repo.UpdateMember(ctx, m); err != nil {
		return Member{}, err
	}
	svc.publish(event.Update, m, actor)
	return m, nil
}

// Delete removes the membership links, then the member. The two calls are not atomic:
// when the second one fails the links stay deleted and the error is reported.
func (svc *Service) Delete(ctx context.Context, id string, actor string) error {
	m, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return err
	}
	if svc.memberships != nil {
		if err := svc.memberships.DeleteMembershipsByMember(ctx, id); err != nil {
			return pkgerrors.Wrap(err, "deleting memberships")
		}
	}
	if err := svc.repo.DeleteMember(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "deleting member")
	}
	svc.publish(event.Delete, m, actor)
	return nil
}

func (svc *Service) ListSampana(ctx context.Context) ([]Sampana, error) {
	return svc.repo.ListSampana(ctx)
}

type QuartierCount struct {
	Quartier string `json:"quartier"`
	Count    int    `json:"count"`
}

// Stats is the dashboard summary of the member base.
type Stats struct {
	Total        int             `json:"total"`
	NewThisMonth int             `json:"new_this_month"`
	Men          int             `json:"men"`
	Women        int             `json:"women"`
	Mpandray     int             `json:"mpandray"`
	TopQuartiers []QuartierCount `json:"top_quartiers"`
	GroupCount   int             `json:"group_count"`
}

const topQuartiers = 5

// ComputeStats summarizes `members` for the calendar month of `now`.
// GroupCount is left to the caller.
func ComputeStats(members []Member, now time.Time) Stats {
	st := Stats{Total: len(members), TopQuartiers: []QuartierCount{}}
	counts := make(map[string]int)
	var order []string

	for _, m := range members {
		switch m.Sexe {
		case Male:
			st.Men++
		case Female:
			st.Women++
		}
		if m.Mpandray {
			st.Mpandray++
		}
		if m.DateInscription.Year() == now.Year() && m.DateInscription.Month() == now.Month() {
			st.NewThisMonth++
		}
		if q := m.Quartier.String; m.Quartier.Valid && q != "" {
			if _, seen := counts[q]; !seen {
				order = append(order, q)
			}
			counts[q]++
		}
	}

	for _, q := range order {
		st.TopQuartiers = append(st.TopQuartiers, QuartierCount{Quartier: q, Count: counts[q]})
	}
	sort.SliceStable(st.TopQuartiers, func(i, j int) bool {
		return st.TopQuartiers[i].Count > st.TopQuartiers[j].Count
	})
	if len(st.TopQuartiers) > topQuartiers {
		st.TopQuartiers = st.TopQuartiers[:topQuartiers]
	}
	return st
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	members, err := svc.repo.QueryMembers(ctx, QueryFilter{})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(members, svc.nowFn().UTC()), nil
}

func (svc *Service) publish(action event.Action, m Member, actor string) {
	svc.bus.Publish(event.Change{Table: event.TableMembers, Action: action, ID: m.ID, Label: m.FullName(), Actor: actor})
}
