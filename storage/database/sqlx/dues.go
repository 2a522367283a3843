package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/dues"
)

const selectDues = `SELECT d.id, d.adherent_id, a.nom, a.prenom, d.mois, d.annee, d.montant, d.paye,
	d.date_paiement, d.created_at, d.updated_at
	FROM adidy d JOIN adherents a ON a.id_adherent = d.adherent_id`

type duesRepository struct {
	exec core.DBExecutor
}

func NewDuesRepository(exec core.DBExecutor) dues.Repository {
	return &duesRepository{exec: exec}
}

func (repo duesRepository) get(ctx context.Context, cond string, args ...interface{}) (dues.Record, error) {
	var r dues.Record
	if err := repo.exec.GetContext(ctx, &r, repo.exec.Rebind(selectDues+` WHERE `+cond), args...); err != nil {
		return dues.Record{}, trapNoRowsErr(err, dues.ErrNotFound, "dues.get")
	}
	return r, nil
}

func (repo duesRepository) GetRecordByPeriod(ctx context.Context, memberID string, mois, annee int) (dues.Record, error) {
	return repo.get(ctx, `d.adherent_id = ? AND d.mois = ? AND d.annee = ?`, memberID, mois, annee)
}

// InsertRecord fails with ErrConflict when the period is already recorded for the member.
func (repo duesRepository) InsertRecord(ctx context.Context, r dues.Record) (dues.Record, error) {
	r.ID = uuid.New().String()
	q := `INSERT INTO adidy (id, adherent_id, mois, annee, montant, paye, date_paiement, created_at, updated_at)
		VALUES (:id, :adherent_id, :mois, :annee, :montant, :paye, :date_paiement, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, r); err != nil {
		if isUniqueViolation(err) {
			return dues.Record{}, dues.ErrConflict
		}
		return dues.Record{}, core.NewRepositoryError("dues.insert", err)
	}
	return repo.get(ctx, `d.id = ?`, r.ID)
}

func (repo duesRepository) UpdateRecord(ctx context.Context, r dues.Record) (dues.Record, error) {
	q := `UPDATE adidy SET montant = :montant, paye = :paye, date_paiement = :date_paiement, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.exec.NamedExecContext(ctx, q, r)
	if err != nil {
		return dues.Record{}, core.NewRepositoryError("dues.update", err)
	}
	if err = mustAffect(res, dues.ErrNotFound, "dues.update"); err != nil {
		return dues.Record{}, err
	}
	return repo.get(ctx, `d.id = ?`, r.ID)
}

func (repo duesRepository) QueryRecords(ctx context.Context, filter dues.QueryFilter) ([]dues.Record, error) {
	var w where
	if filter.MemberID != "" {
		w.add("d.adherent_id = ?", filter.MemberID)
	}
	if filter.Mois != 0 {
		w.add("d.mois = ?", filter.Mois)
	}
	if filter.Annee != 0 {
		w.add("d.annee = ?", filter.Annee)
	}
	if filter.UnpaidOnly {
		w.add("NOT d.paye")
	}
	if filter.MinAmount > 0 {
		w.add("d.montant >= ?", filter.MinAmount)
	}

	q := selectDues + w.String() + ` ORDER BY d.annee DESC, d.mois DESC, LOWER(a.nom), d.id`
	records := make([]dues.Record, 0)
	if err := repo.exec.SelectContext(ctx, &records, repo.exec.Rebind(q), w.args...); err != nil {
		return nil, core.NewRepositoryError("dues.query", err)
	}
	return records, nil
}
