package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/member"
)

const selectContributions = `SELECT c.id, c.adherent_id, a.nom, a.prenom, c.type, c.montant, c.date_contribution, c.created_at
	FROM contributions c JOIN adherents a ON a.id_adherent = c.adherent_id`

type contributionRepository struct {
	exec core.DBExecutor
}

func NewContributionRepository(exec core.DBExecutor) contribution.Repository {
	return &contributionRepository{exec: exec}
}

func (repo contributionRepository) CreateContribution(ctx context.Context, c contribution.Contribution) (contribution.Contribution, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO contributions (id, adherent_id, montant, type, date_contribution, created_at)
		VALUES (:id, :adherent_id, :montant, :type, :date_contribution, :created_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, c); err != nil {
		if foreignKeyOn(err, "adherent_id") {
			return contribution.Contribution{}, member.ErrNotFound
		}
		return contribution.Contribution{}, core.NewRepositoryError("contribution.create", err)
	}
	return repo.GetContributionByID(ctx, c.ID)
}

func (repo contributionRepository) GetContributionByID(ctx context.Context, id string) (contribution.Contribution, error) {
	if _, err := uuid.Parse(id); err != nil {
		return contribution.Contribution{}, contribution.ErrNotFound
	}
	var c contribution.Contribution
	if err := repo.exec.GetContext(ctx, &c, repo.exec.Rebind(selectContributions+` WHERE c.id = ?`), id); err != nil {
		return contribution.Contribution{}, trapNoRowsErr(err, contribution.ErrNotFound, "contribution.get")
	}
	return c, nil
}

func (repo contributionRepository) QueryContributions(ctx context.Context, filter contribution.QueryFilter) ([]contribution.Contribution, error) {
	var w where
	if filter.MemberID != "" {
		w.add("c.adherent_id = ?", filter.MemberID)
	}
	if filter.Type != "" {
		w.add("c.type = ?", filter.Type)
	}
	if filter.From != nil && !filter.From.IsZero() {
		w.add("c.date_contribution >= ?", *filter.From)
	}
	if filter.To != nil && !filter.To.IsZero() {
		w.add("c.date_contribution <= ?", *filter.To)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		w.add("(a.nom ILIKE ? OR a.prenom ILIKE ?)", like, like)
	}

	q := selectContributions + w.String() + ` ORDER BY c.date_contribution DESC, c.created_at DESC, c.id`
	cs := make([]contribution.Contribution, 0)
	if err := repo.exec.SelectContext(ctx, &cs, repo.exec.Rebind(q), w.args...); err != nil {
		return nil, core.NewRepositoryError("contribution.query", err)
	}
	return cs, nil
}

func (repo contributionRepository) DeleteContribution(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(`DELETE FROM contributions WHERE id = ?`), id)
	if err != nil {
		return core.NewRepositoryError("contribution.delete", err)
	}
	return mustAffect(res, contribution.ErrNotFound, "contribution.delete")
}
