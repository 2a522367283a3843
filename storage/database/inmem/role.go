package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/role"
)

type roleRepository struct {
	db *DB
}

func NewRoleRepository(db *DB) role.Repository {
	return &roleRepository{db: db}
}

func (repo *roleRepository) GetAssignment(_ context.Context, userID string) (role.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return role.Assignment{}, core.NewRepositoryError("role.get", err)
	}

	if a, ok := repo.db.roles[userID]; ok {
		return a, nil
	}
	return role.Assignment{}, role.ErrNotFound
}

// InsertAssignment enforces the unique user_id constraint.
func (repo *roleRepository) InsertAssignment(_ context.Context, a role.Assignment) (role.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return role.Assignment{}, core.NewRepositoryError("role.insert", err)
	}

	if _, ok := repo.db.roles[a.UserID]; ok {
		return role.Assignment{}, role.ErrConflict
	}
	repo.db.roles[a.UserID] = a
	return a, nil
}

func (repo *roleRepository) UpdateAssignment(_ context.Context, a role.Assignment) (role.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return role.Assignment{}, core.NewRepositoryError("role.update", err)
	}

	if _, ok := repo.db.roles[a.UserID]; !ok {
		return role.Assignment{}, role.ErrNotFound
	}
	repo.db.roles[a.UserID] = a
	return a, nil
}

func (repo *roleRepository) QueryAssignments(context.Context) ([]role.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("role.query", err)
	}

	as := make([]role.Assignment, 0, len(repo.db.roles))
	for _, a := range repo.db.roles {
		as = append(as, a)
	}
	sort.Slice(as, func(i, j int) bool { return as[i].UserID < as[j].UserID })
	return as, nil
}
