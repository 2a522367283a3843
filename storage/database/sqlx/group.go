package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
)

const selectGroups = `SELECT g.id_groupe, g.nom_groupe, g.description, g.created_at, g.updated_at,
	(SELECT COUNT(*) FROM adherents_groupes ag WHERE ag.id_groupe = g.id_groupe) AS adherent_count
	FROM groupes g`

type groupRepository struct {
	exec core.DBExecutor
}

func NewGroupRepository(exec core.DBExecutor) group.Repository {
	return &groupRepository{exec: exec}
}

func (repo groupRepository) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	g.ID = uuid.New().String()
	g.AdherentCount = 0
	q := `INSERT INTO groupes (id_groupe, nom_groupe, description, created_at, updated_at)
		VALUES (:id_groupe, :nom_groupe, :description, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, g); err != nil {
		return group.Group{}, core.NewRepositoryError("group.create", err)
	}
	return g, nil
}

func (repo groupRepository) GetGroupByID(ctx context.Context, id string) (group.Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return group.Group{}, group.ErrNotFound
	}
	var g group.Group
	if err := repo.exec.GetContext(ctx, &g, repo.exec.Rebind(selectGroups+` WHERE g.id_groupe = ?`), id); err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "group.get")
	}
	return g, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context) ([]group.Group, error) {
	groups := make([]group.Group, 0)
	if err := repo.exec.SelectContext(ctx, &groups, selectGroups+` ORDER BY LOWER(g.nom_groupe), g.id_groupe`); err != nil {
		return nil, core.NewRepositoryError("group.query", err)
	}
	return groups, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	q := `UPDATE groupes SET nom_groupe = :nom_groupe, description = :description, updated_at = :updated_at
		WHERE id_groupe = :id_groupe`
	res, err := repo.exec.NamedExecContext(ctx, q, g)
	if err != nil {
		return group.Group{}, core.NewRepositoryError("group.update", err)
	}
	if err = mustAffect(res, group.ErrNotFound, "group.update"); err != nil {
		return group.Group{}, err
	}
	return repo.GetGroupByID(ctx, g.ID)
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(`DELETE FROM groupes WHERE id_groupe = ?`), id)
	if err != nil {
		return core.NewRepositoryError("group.delete", err)
	}
	return mustAffect(res, group.ErrNotFound, "group.delete")
}

func (repo groupRepository) AddMembership(ctx context.Context, ms group.Membership) error {
	q := `INSERT INTO adherents_groupes (id_adherent, id_groupe, date_adhesion) VALUES (:id_adherent, :id_groupe, :date_adhesion)`
	if _, err := repo.exec.NamedExecContext(ctx, q, ms); err != nil {
		switch {
		case isUniqueViolation(err):
			return group.ErrAlreadyMember
		case foreignKeyOn(err, "id_groupe"):
			return group.ErrNotFound
		case foreignKeyOn(err, "id_adherent"):
			return member.ErrNotFound
		}
		return core.NewRepositoryError("membership.add", err)
	}
	return nil
}

func (repo groupRepository) RemoveMembership(ctx context.Context, memberID, groupID string) error {
	q := repo.exec.Rebind(`DELETE FROM adherents_groupes WHERE id_adherent = ? AND id_groupe = ?`)
	res, err := repo.exec.ExecContext(ctx, q, memberID, groupID)
	if err != nil {
		return core.NewRepositoryError("membership.remove", err)
	}
	return mustAffect(res, group.ErrNotMember, "membership.remove")
}

func (repo groupRepository) DeleteMembershipsByMember(ctx context.Context, memberID string) error {
	q := repo.exec.Rebind(`DELETE FROM adherents_groupes WHERE id_adherent = ?`)
	if _, err := repo.exec.ExecContext(ctx, q, memberID); err != nil {
		return core.NewRepositoryError("membership.delete", err)
	}
	return nil
}

func (repo groupRepository) DeleteMembershipsByGroup(ctx context.Context, groupID string) error {
	q := repo.exec.Rebind(`DELETE FROM adherents_groupes WHERE id_groupe = ?`)
	if _, err := repo.exec.ExecContext(ctx, q, groupID); err != nil {
		return core.NewRepositoryError("membership.delete", err)
	}
	return nil
}

func (repo groupRepository) QueryGroupMembers(ctx context.Context, groupID string) ([]member.Member, error) {
	q := selectMembers + ` JOIN adherents_groupes ag ON ag.id_adherent = a.id_adherent
		WHERE ag.id_groupe = ? ORDER BY a.nom, a.prenom`
	members := make([]member.Member, 0)
	if err := repo.exec.SelectContext(ctx, &members, repo.exec.Rebind(q), groupID); err != nil {
		return nil, core.NewRepositoryError("membership.query", err)
	}
	return members, nil
}

func (repo groupRepository) QueryMemberGroups(ctx context.Context, memberID string) ([]group.Group, error) {
	q := selectGroups + ` JOIN adherents_groupes mg ON mg.id_groupe = g.id_groupe
		WHERE mg.id_adherent = ? ORDER BY g.nom_groupe`
	groups := make([]group.Group, 0)
	if err := repo.exec.SelectContext(ctx, &groups, repo.exec.Rebind(q), memberID); err != nil {
		return nil, core.NewRepositoryError("membership.query", err)
	}
	return groups, nil
}
