package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/user"
)

const selectUsers = `SELECT id, username, email, id_adherent, is_active, password_hash, created_at, updated_at, last_login
	FROM users`

type userRepository struct {
	exec core.DBExecutor
}

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

// CheckUsernameUniqueness reports the username clash before the email one.
func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	q := `SELECT username FROM users WHERE (username = ? OR (? <> '' AND email = ?))`
	args := []interface{}{username, email, email}
	if len(excludedIDs) > 0 {
		q += ` AND id NOT IN (?)`
		args = append(args, excludedIDs)
	}
	q += ` ORDER BY (username = ?) DESC LIMIT 1`
	args = append(args, username)

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return core.NewRepositoryError("user.uniqueness", err)
	}
	var found []string
	if err = repo.exec.SelectContext(ctx, &found, repo.exec.Rebind(q), args...); err != nil {
		return core.NewRepositoryError("user.uniqueness", err)
	}
	switch {
	case len(found) == 0:
		return nil
	case found[0] == username:
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (id, username, email, password_hash, id_adherent, is_active, created_at, updated_at, last_login)
		VALUES (:id, :username, :email, :password_hash, :id_adherent, :is_active, :created_at, :updated_at, :last_login)`
	if _, err := repo.exec.NamedExecContext(ctx, q, usr); err != nil {
		return user.User{}, core.NewRepositoryError("user.create", err)
	}
	return usr, nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := repo.exec.SelectContext(ctx, &users, selectUsers+` ORDER BY username`); err != nil {
		return nil, core.NewRepositoryError("user.query", err)
	}
	return users, nil
}

func (repo userRepository) get(ctx context.Context, cond string, args ...interface{}) (user.User, error) {
	var usr user.User
	if err := repo.exec.GetContext(ctx, &usr, repo.exec.Rebind(selectUsers+` WHERE `+cond+` LIMIT 1`), args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "user.get")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, `id = ?`, id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, `email = ?`, email)
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, `(username = ? OR email = ?) ORDER BY (username = ?) DESC`, username, username, username)
}

// UpdateUser keeps the stored password hash and update time when `usr` has none.
func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET username = :username, email = :email, id_adherent = :id_adherent,
		is_active = :is_active, last_login = :last_login,
		password_hash = COALESCE(:password_hash, password_hash),
		updated_at = COALESCE(:updated_at, updated_at)
		WHERE id = :id`
	args := struct {
		user.User
		PasswordHash interface{} `db:"password_hash"`
		UpdatedAt    interface{} `db:"updated_at"`
	}{User: usr}
	if len(usr.PasswordHash) > 0 {
		args.PasswordHash = usr.PasswordHash
	}
	if !usr.UpdatedAt.IsZero() {
		args.UpdatedAt = usr.UpdatedAt
	}
	res, err := repo.exec.NamedExecContext(ctx, q, args)
	if err != nil {
		return user.User{}, core.NewRepositoryError("user.update", err)
	}
	if err = mustAffect(res, user.ErrNotFound, "user.update"); err != nil {
		return user.User{}, err
	}
	return repo.GetUserByID(ctx, usr.ID)
}
