package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/dues"
)

type duesRepository struct {
	db *DB
}

func NewDuesRepository(db *DB) dues.Repository {
	return &duesRepository{db: db}
}

// withMember fills the joined member names. The caller holds the lock.
func (repo *duesRepository) withMember(r dues.Record) dues.Record {
	if m, ok := repo.db.members[r.MemberID]; ok {
		r.Nom, r.Prenom = m.Nom, m.Prenom
	}
	return r
}

func (repo *duesRepository) GetRecordByPeriod(_ context.Context, memberID string, mois, annee int) (dues.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return dues.Record{}, core.NewRepositoryError("dues.get", err)
	}

	for _, r := range repo.db.dues {
		if r.MemberID == memberID && r.Mois == mois && r.Annee == annee {
			return repo.withMember(*r), nil
		}
	}
	return dues.Record{}, dues.ErrNotFound
}

func (repo *duesRepository) InsertRecord(_ context.Context, r dues.Record) (dues.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return dues.Record{}, core.NewRepositoryError("dues.insert", err)
	}

	for _, existing := range repo.db.dues {
		if existing.MemberID == r.MemberID && existing.Mois == r.Mois && existing.Annee == r.Annee {
			return dues.Record{}, dues.ErrConflict
		}
	}
	r.ID = newID()
	repo.db.dues[r.ID] = &r
	return repo.withMember(r), nil
}

func (repo *duesRepository) UpdateRecord(_ context.Context, r dues.Record) (dues.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return dues.Record{}, core.NewRepositoryError("dues.update", err)
	}

	orig, ok := repo.db.dues[r.ID]
	if !ok {
		return dues.Record{}, dues.ErrNotFound
	}
	orig.Montant = r.Montant
	orig.Paye = r.Paye
	orig.DatePaiement = r.DatePaiement
	orig.UpdatedAt = r.UpdatedAt
	return repo.withMember(*orig), nil
}

func (repo *duesRepository) QueryRecords(_ context.Context, filter dues.QueryFilter) ([]dues.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("dues.query", err)
	}

	records := make([]dues.Record, 0)
	for _, r := range repo.db.dues {
		if filter.Matches(*r) {
			records = append(records, repo.withMember(*r))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Annee != b.Annee {
			return a.Annee > b.Annee
		}
		if a.Mois != b.Mois {
			return a.Mois > b.Mois
		}
		if an, bn := strings.ToLower(a.Nom), strings.ToLower(b.Nom); an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
	return records, nil
}
