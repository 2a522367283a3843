package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/member"
)

const memberColumns = `a.id_adherent, a.nom, a.prenom, a.sexe, a.date_naissance, a.adresse, a.quartier,
	a.telephone, a.email, a.fonction_eglise, a.etat_civil, a.mpandray, a.faritra, a.sampana_id,
	s.nom_sampana, a.date_inscription, a.created_at, a.updated_at`

const selectMembers = `SELECT ` + memberColumns + ` FROM adherents a LEFT JOIN sampana s ON s.id_sampana = a.sampana_id`

var memberOrdering = map[string]string{
	"nom":              "a.nom",
	"prenom":           "a.prenom",
	"quartier":         "a.quartier",
	"date_inscription": "a.date_inscription",
	"created_at":       "a.created_at",
}

type memberRepository struct {
	exec core.DBExecutor
}

func NewMemberRepository(exec core.DBExecutor) member.Repository {
	return &memberRepository{exec: exec}
}

func (repo memberRepository) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	m.ID = uuid.New().String()
	q := `INSERT INTO adherents (id_adherent, nom, prenom, sexe, date_naissance, adresse, quartier, telephone,
		email, fonction_eglise, etat_civil, mpandray, faritra, sampana_id, date_inscription, created_at, updated_at)
		VALUES (:id_adherent, :nom, :prenom, :sexe, :date_naissance, :adresse, :quartier, :telephone,
		:email, :fonction_eglise, :etat_civil, :mpandray, :faritra, :sampana_id, :date_inscription, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, m); err != nil {
		return member.Member{}, core.NewRepositoryError("member.create", err)
	}
	return repo.GetMemberByID(ctx, m.ID)
}

func (repo memberRepository) GetMemberByID(ctx context.Context, id string) (member.Member, error) {
	if _, err := uuid.Parse(id); err != nil {
		return member.Member{}, member.ErrNotFound
	}
	var m member.Member
	if err := repo.exec.GetContext(ctx, &m, repo.exec.Rebind(selectMembers+` WHERE a.id_adherent = ?`), id); err != nil {
		return member.Member{}, trapNoRowsErr(err, member.ErrNotFound, "member.get")
	}
	return m, nil
}

func (repo memberRepository) QueryMembers(ctx context.Context, filter member.QueryFilter, ordering ...core.DBOrdering) ([]member.Member, error) {
	var w where
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		w.add("(a.nom ILIKE ? OR a.prenom ILIKE ? OR a.email ILIKE ? OR a.telephone LIKE ?)", like, like, like, like)
	}
	if filter.Sexe != "" {
		w.add("a.sexe = ?", filter.Sexe)
	}
	if filter.Quartier != "" {
		w.add("a.quartier = ?", filter.Quartier)
	}
	if filter.Mpandray != nil {
		w.add("a.mpandray = ?", *filter.Mpandray)
	}
	if filter.Faritra != "" {
		w.add("a.faritra = ?", filter.Faritra)
	}
	if filter.SampanaID != "" {
		w.add("a.sampana_id = ?", filter.SampanaID)
	}

	q := selectMembers + w.String() + orderBy(ordering, memberOrdering, "a.nom ASC, a.prenom ASC")
	members := make([]member.Member, 0)
	if err := repo.exec.SelectContext(ctx, &members, repo.exec.Rebind(q), w.args...); err != nil {
		return nil, core.NewRepositoryError("member.query", err)
	}
	return members, nil
}

func (repo memberRepository) UpdateMember(ctx context.Context, m member.Member) (member.Member, error) {
	q := `UPDATE adherents SET nom = :nom, prenom = :prenom, sexe = :sexe, date_naissance = :date_naissance,
		adresse = :adresse, quartier = :quartier, telephone = :telephone, email = :email,
		fonction_eglise = :fonction_eglise, etat_civil = :etat_civil, mpandray = :mpandray, faritra = :faritra,
		sampana_id = :sampana_id, updated_at = :updated_at
		WHERE id_adherent = :id_adherent`
	res, err := repo.exec.NamedExecContext(ctx, q, m)
	if err != nil {
		return member.Member{}, core.NewRepositoryError("member.update", err)
	}
	if err = mustAffect(res, member.ErrNotFound, "member.update"); err != nil {
		return member.Member{}, err
	}
	return repo.GetMemberByID(ctx, m.ID)
}

// DeleteMember relies on the ON DELETE CASCADE of adidy and contributions.
func (repo memberRepository) DeleteMember(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(`DELETE FROM adherents WHERE id_adherent = ?`), id)
	if err != nil {
		return core.NewRepositoryError("member.delete", err)
	}
	return mustAffect(res, member.ErrNotFound, "member.delete")
}

func (repo memberRepository) ListSampana(ctx context.Context) ([]member.Sampana, error) {
	sampana := make([]member.Sampana, 0)
	q := `SELECT id_sampana, nom_sampana, description FROM sampana ORDER BY nom_sampana`
	if err := repo.exec.SelectContext(ctx, &sampana, q); err != nil {
		return nil, core.NewRepositoryError("sampana.list", err)
	}
	return sampana, nil
}
