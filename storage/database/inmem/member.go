package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/member"
)

type memberRepository struct {
	db *DB
}

func NewMemberRepository(db *DB) member.Repository {
	return &memberRepository{db: db}
}

// withSampana fills the joined sampana name. The caller holds the lock.
func (repo *memberRepository) withSampana(m member.Member) member.Member {
	m.SampanaName.Valid = false
	m.SampanaName.String = ""
	if m.SampanaID.Valid {
		for _, s := range repo.db.sampana {
			if s.ID == m.SampanaID.String {
				m.SampanaName.SetValid(s.Nom)
			}
		}
	}
	return m
}

func (repo *memberRepository) CreateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return member.Member{}, core.NewRepositoryError("member.create", err)
	}

	m.ID = newID()
	m = repo.withSampana(m)
	repo.db.members[m.ID] = &m
	return m, nil
}

func (repo *memberRepository) GetMemberByID(_ context.Context, id string) (member.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return member.Member{}, core.NewRepositoryError("member.get", err)
	}

	if m, ok := repo.db.members[id]; ok {
		return repo.withSampana(*m), nil
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) QueryMembers(_ context.Context, filter member.QueryFilter, ordering ...core.DBOrdering) ([]member.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("member.query", err)
	}

	members := make([]member.Member, 0, len(repo.db.members))
	for _, m := range repo.db.members {
		if filter.Matches(*m) {
			members = append(members, repo.withSampana(*m))
		}
	}
	sortMembers(members, ordering)
	return members, nil
}

func sortMembers(members []member.Member, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "nom", Ascending: true}, {Field: "prenom", Ascending: true}}
	}
	key := func(m member.Member, field string) string {
		switch field {
		case "prenom":
			return strings.ToLower(m.Prenom)
		case "date_inscription":
			return m.DateInscription.String()
		case "created_at":
			return m.CreatedAt.Format("2006-01-02T15:04:05.000000000")
		case "quartier":
			return strings.ToLower(m.Quartier.String)
		default:
			return strings.ToLower(m.Nom)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := key(members[i], ord.Field), key(members[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return members[i].ID < members[j].ID
	})
}

func (repo *memberRepository) UpdateMember(_ context.Context, m member.Member) (member.Member, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return member.Member{}, core.NewRepositoryError("member.update", err)
	}

	orig, ok := repo.db.members[m.ID]
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	m.CreatedAt = orig.CreatedAt
	m = repo.withSampana(m)
	repo.db.members[m.ID] = &m
	return m, nil
}

// DeleteMember also drops the dues and contributions of the member, like the SQL cascade.
func (repo *memberRepository) DeleteMember(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return core.NewRepositoryError("member.delete", err)
	}

	if _, ok := repo.db.members[id]; !ok {
		return member.ErrNotFound
	}
	delete(repo.db.members, id)
	for rid, r := range repo.db.dues {
		if r.MemberID == id {
			delete(repo.db.dues, rid)
		}
	}
	for cid, c := range repo.db.contributions {
		if c.MemberID == id {
			delete(repo.db.contributions, cid)
		}
	}
	return nil
}

func (repo *memberRepository) ListSampana(context.Context) ([]member.Sampana, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("sampana.list", err)
	}
	return append([]member.Sampana(nil), repo.db.sampana...), nil
}
