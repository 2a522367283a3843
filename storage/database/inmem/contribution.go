package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/member"
)

type contributionRepository struct {
	db *DB
}

func NewContributionRepository(db *DB) contribution.Repository {
	return &contributionRepository{db: db}
}

// withMember fills the joined member names. The caller holds the lock.
func (repo *contributionRepository) withMember(c contribution.Contribution) contribution.Contribution {
	if m, ok := repo.db.members[c.MemberID]; ok {
		c.Nom, c.Prenom = m.Nom, m.Prenom
	}
	return c
}

func (repo *contributionRepository) CreateContribution(_ context.Context, c contribution.Contribution) (contribution.Contribution, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return contribution.Contribution{}, core.NewRepositoryError("contribution.create", err)
	}

	if _, ok := repo.db.members[c.MemberID]; !ok {
		return contribution.Contribution{}, member.ErrNotFound
	}
	c.ID = newID()
	repo.db.contributions[c.ID] = &c
	return repo.withMember(c), nil
}

func (repo *contributionRepository) GetContributionByID(_ context.Context, id string) (contribution.Contribution, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return contribution.Contribution{}, core.NewRepositoryError("contribution.get", err)
	}

	if c, ok := repo.db.contributions[id]; ok {
		return repo.withMember(*c), nil
	}
	return contribution.Contribution{}, contribution.ErrNotFound
}

func (repo *contributionRepository) QueryContributions(_ context.Context, filter contribution.QueryFilter) ([]contribution.Contribution, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("contribution.query", err)
	}

	cs := make([]contribution.Contribution, 0)
	for _, c := range repo.db.contributions {
		if c := repo.withMember(*c); filter.Matches(c) {
			cs = append(cs, c)
		}
	}
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].Date.Equal(cs[j].Date.Time) {
			return cs[i].Date.After(cs[j].Date)
		}
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
	return cs, nil
}

func (repo *contributionRepository) DeleteContribution(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return core.NewRepositoryError("contribution.delete", err)
	}

	if _, ok := repo.db.contributions[id]; !ok {
		return contribution.ErrNotFound
	}
	delete(repo.db.contributions, id)
	return nil
}
