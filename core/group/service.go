package group

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/member"
)

var (
	// errors
	ErrNotFound      = errors.New("group not found")
	ErrAlreadyMember = errors.New("already a member of this group")
	ErrNotMember     = errors.New("not a member of this group")
	ErrGroupFull     = errors.New("this group has reached its maximum number of members")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, g Group) (Group, error)
		GetGroupByID(ctx context.Context, id string) (Group, error)
		// QueryGroups lists the groups by name with their AdherentCount.
		QueryGroups(ctx context.Context) ([]Group, error)
		UpdateGroup(ctx context.Context, g Group) (Group, error)
		DeleteGroup(ctx context.Context, id string) error

		// AddMembership fails with ErrAlreadyMember when the link exists.
		AddMembership(ctx context.Context, ms Membership) error
		// RemoveMembership fails with ErrNotMember when the link does not exist.
		RemoveMembership(ctx context.Context, memberID, groupID string) error
		DeleteMembershipsByMember(ctx context.Context, memberID string) error
		DeleteMembershipsByGroup(ctx context.Context, groupID string) error
		QueryGroupMembers(ctx context.Context, groupID string) ([]member.Member, error)
		QueryMemberGroups(ctx context.Context, memberID string) ([]Group, error)
	}

	// MemberFinder checks that the member exists before it is linked.
	MemberFinder interface {
		GetByID(ctx context.Context, id string) (member.Member, error)
	}

	// Service manages groups and their links. It also implements member.Memberships.
	Service struct {
		repo     Repository
		members  MemberFinder
		bus      *event.Bus
		validate *validator.Validate
		nowFn    func() time.Time

		// MaxMembers caps the size of a group; 0 means unlimited.
		MaxMembers func(ctx context.Context) int
	}
)

var _ member.Memberships = (*Service)(nil)

func NewService(repo Repository, members MemberFinder, bus *event.Bus, validate *validator.Validate) *Service {
	return &Service{repo: repo, members: members, bus: bus, validate: validate, nowFn: time.Now}
}

// SetMemberFinder breaks the construction cycle with member.Service.
func (svc *Service) SetMemberFinder(members MemberFinder) { svc.members = members }

func (svc *Service) Create(ctx context.Context, ng NewGroup, actor string) (Group, error) {
	if err := ng.Validate(svc.validate); err != nil {
		return Group{}, err
	}
	now := svc.nowFn().UTC()
	g, err := svc.repo.CreateGroup(ctx, Group{Nom: ng.Nom, Description: ng.Description, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Group{}, err
	}
	svc.publish(event.TableGroups, event.Insert, g.ID, g.Nom, actor)
	return g, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context) ([]Group, error) {
	return svc.repo.QueryGroups(ctx)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	groups, err := svc.repo.QueryGroups(ctx)
	return len(groups), err
}

func (svc *Service) Update(ctx context.Context, id string, ug UpdateGroup, actor string) (Group, error) {
	if err := ug.Validate(svc.validate); err != nil {
		return Group{}, err
	}
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	g.Nom = ug.Nom
	g.Description = ug.Description
	g.UpdatedAt = svc.nowFn().UTC()
	if g, err = svc.repo.UpdateGroup(ctx, g); err != nil {
		return Group{}, err
	}
	svc.publish(event.TableGroups, event.Update, g.ID, g.Nom, actor)
	return g, nil
}

// Delete removes the links of the group, then the group. Members are untouched.
func (svc *Service) Delete(ctx context.Context, id string, actor string) error {
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteMembershipsByGroup(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "deleting memberships")
	}
	if err := svc.repo.DeleteGroup(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "deleting group")
	}
	svc.publish(event.TableGroups, event.Delete, g.ID, g.Nom, actor)
	return nil
}

// AddMember links `memberID` to `groupID`.
func (svc *Service) AddMember(ctx context.Context, groupID, memberID, actor string) error {
	g, err := svc.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return err
	}
	if svc.members != nil {
		if _, err := svc.members.GetByID(ctx, memberID); err != nil {
			return err
		}
	}
	if svc.MaxMembers != nil {
		if max := svc.MaxMembers(ctx); max > 0 && g.AdherentCount >= max {
			return core.NewValidationError(ErrGroupFull, core.FieldError{Field: "id_groupe", Error: ErrGroupFull.Error()})
		}
	}

	ms := Membership{MemberID: memberID, GroupID: groupID, DateAdhesion: core.DateOf(svc.nowFn().UTC())}
	if err := svc.repo.AddMembership(ctx, ms); err != nil {
		return err
	}
	svc.publish(event.TableMemberships, event.Insert, memberID+":"+groupID, g.Nom, actor)
	return nil
}

func (svc *Service) RemoveMember(ctx context.Context, groupID, memberID, actor string) error {
	if err := svc.repo.RemoveMembership(ctx, memberID, groupID); err != nil {
		return err
	}
	svc.publish(event.TableMemberships, event.Delete, memberID+":"+groupID, "", actor)
	return nil
}

func (svc *Service) Members(ctx context.Context, groupID string) ([]member.Member, error) {
	if _, err := svc.repo.GetGroupByID(ctx, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QueryGroupMembers(ctx, groupID)
}

func (svc *Service) GroupsOf(ctx context.Context, memberID string) ([]Group, error) {
	return svc.repo.QueryMemberGroups(ctx, memberID)
}

// AddMemberships is used on member creation; links that already exist are ignored.
func (svc *Service) AddMemberships(ctx context.Context, memberID string, groupIDs ...string) error {
	date := core.DateOf(svc.nowFn().UTC())
	for _, gid := range groupIDs {
		err := svc.repo.AddMembership(ctx, Membership{MemberID: memberID, GroupID: gid, DateAdhesion: date})
		if err != nil && !errors.Is(err, ErrAlreadyMember) {
			return err
		}
	}
	return nil
}

func (svc *Service) DeleteMembershipsByMember(ctx context.Context, memberID string) error {
	return svc.repo.DeleteMembershipsByMember(ctx, memberID)
}

func (svc *Service) publish(table string, action event.Action, id, label, actor string) {
	svc.bus.Publish(event.Change{Table: table, Action: action, ID: id, Label: label, Actor: actor})
}
