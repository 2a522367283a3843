package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
)

type groupRepository struct {
	db *DB
}

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

// withCount fills AdherentCount. The caller holds the lock.
func (repo *groupRepository) withCount(g group.Group) group.Group {
	g.AdherentCount = 0
	for k := range repo.db.memberships {
		if k.groupID == g.ID {
			g.AdherentCount++
		}
	}
	return g
}

func (repo *groupRepository) CreateGroup(_ context.Context, g group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return group.Group{}, core.NewRepositoryError("group.create", err)
	}

	g.ID = newID()
	g.AdherentCount = 0
	repo.db.groups[g.ID] = &g
	return g, nil
}

func (repo *groupRepository) GetGroupByID(_ context.Context, id string) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return group.Group{}, core.NewRepositoryError("group.get", err)
	}

	if g, ok := repo.db.groups[id]; ok {
		return repo.withCount(*g), nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) QueryGroups(context.Context) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("group.query", err)
	}

	groups := make([]group.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		groups = append(groups, repo.withCount(*g))
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := strings.ToLower(groups[i].Nom), strings.ToLower(groups[j].Nom)
		if a == b {
			return groups[i].ID < groups[j].ID
		}
		return a < b
	})
	return groups, nil
}

func (repo *groupRepository) UpdateGroup(_ context.Context, g group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return group.Group{}, core.NewRepositoryError("group.update", err)
	}

	orig, ok := repo.db.groups[g.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	orig.Nom = g.Nom
	orig.Description = g.Description
	orig.UpdatedAt = g.UpdatedAt
	return repo.withCount(*orig), nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return core.NewRepositoryError("group.delete", err)
	}

	if _, ok := repo.db.groups[id]; !ok {
		return group.ErrNotFound
	}
	delete(repo.db.groups, id)
	return nil
}

func (repo *groupRepository) AddMembership(_ context.Context, ms group.Membership) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return core.NewRepositoryError("membership.add", err)
	}

	if _, ok := repo.db.groups[ms.GroupID]; !ok {
		return group.ErrNotFound
	}
	if _, ok := repo.db.members[ms.MemberID]; !ok {
		return member.ErrNotFound
	}
	key := membershipKey{memberID: ms.MemberID, groupID: ms.GroupID}
	if _, ok := repo.db.memberships[key]; ok {
		return group.ErrAlreadyMember
	}
	repo.db.memberships[key] = ms
	return nil
}

func (repo *groupRepository) RemoveMembership(_ context.Context, memberID, groupID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return core.NewRepositoryError("membership.remove", err)
	}

	key := membershipKey{memberID: memberID, groupID: groupID}
	if _, ok := repo.db.memberships[key]; !ok {
		return group.ErrNotMember
	}
	delete(repo.db.memberships, key)
	return nil
}

func (repo *groupRepository) deleteMemberships(match func(membershipKey) bool) {
	for k := range repo.db.memberships {
		if match(k) {
			delete(repo.db.memberships, k)
		}
	}
}

func (repo *groupRepository) DeleteMembershipsByMember(_ context.Context, memberID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return core.NewRepositoryError("membership.delete", err)
	}
	repo.deleteMemberships(func(k membershipKey) bool { return k.memberID == memberID })
	return nil
}

func (repo *groupRepository) DeleteMembershipsByGroup(_ context.Context, groupID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return core.NewRepositoryError("membership.delete", err)
	}
	repo.deleteMemberships(func(k membershipKey) bool { return k.groupID == groupID })
	return nil
}

func (repo *groupRepository) QueryGroupMembers(_ context.Context, groupID string) ([]member.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("membership.query", err)
	}

	members := make([]member.Member, 0)
	for k := range repo.db.memberships {
		if m, ok := repo.db.members[k.memberID]; ok && k.groupID == groupID {
			members = append(members, *m)
		}
	}
	sortMembers(members, nil)
	return members, nil
}

func (repo *groupRepository) QueryMemberGroups(_ context.Context, memberID string) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("membership.query", err)
	}

	groups := make([]group.Group, 0)
	for k := range repo.db.memberships {
		if g, ok := repo.db.groups[k.groupID]; ok && k.memberID == memberID {
			groups = append(groups, repo.withCount(*g))
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Nom < groups[j].Nom })
	return groups, nil
}
