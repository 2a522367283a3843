package sqlxrepos

import (
	"context"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/role"
)

type roleRepository struct {
	exec core.DBExecutor
}

func NewRoleRepository(exec core.DBExecutor) role.Repository {
	return &roleRepository{exec: exec}
}

func (repo roleRepository) GetAssignment(ctx context.Context, userID string) (role.Assignment, error) {
	var a role.Assignment
	q := repo.exec.Rebind(`SELECT user_id, role, updated_at FROM user_roles WHERE user_id = ?`)
	if err := repo.exec.GetContext(ctx, &a, q, userID); err != nil {
		return role.Assignment{}, trapNoRowsErr(err, role.ErrNotFound, "role.get")
	}
	return a, nil
}

// InsertAssignment fails with ErrConflict when the user already has a role.
func (repo roleRepository) InsertAssignment(ctx context.Context, a role.Assignment) (role.Assignment, error) {
	q := `INSERT INTO user_roles (user_id, role, updated_at) VALUES (:user_id, :role, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, a); err != nil {
		if isUniqueViolation(err) {
			return role.Assignment{}, role.ErrConflict
		}
		return role.Assignment{}, core.NewRepositoryError("role.insert", err)
	}
	return a, nil
}

func (repo roleRepository) UpdateAssignment(ctx context.Context, a role.Assignment) (role.Assignment, error) {
	q := `UPDATE user_roles SET role = :role, updated_at = :updated_at WHERE user_id = :user_id`
	res, err := repo.exec.NamedExecContext(ctx, q, a)
	if err != nil {
		return role.Assignment{}, core.NewRepositoryError("role.update", err)
	}
	if err = mustAffect(res, role.ErrNotFound, "role.update"); err != nil {
		return role.Assignment{}, err
	}
	return a, nil
}

func (repo roleRepository) QueryAssignments(ctx context.Context) ([]role.Assignment, error) {
	as := make([]role.Assignment, 0)
	if err := repo.exec.SelectContext(ctx, &as, `SELECT user_id, role, updated_at FROM user_roles ORDER BY user_id`); err != nil {
		return nil, core.NewRepositoryError("role.query", err)
	}
	return as, nil
}
