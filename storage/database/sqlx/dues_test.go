package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/dues"
	sqlxrepos "github.com/trezcool/mpiangona/storage/database/sqlx"
)

var duesColumns = []string{
	"id", "adherent_id", "nom", "prenom", "mois", "annee", "montant", "paye", "date_paiement", "created_at", "updated_at",
}

func TestDuesRepository_InsertRecord(t *testing.T) {
	now := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	paidAt := core.DateOf(now)
	rec := dues.Record{MemberID: memberID, Mois: 3, Annee: 2024, Montant: 2000, Paye: true, DatePaiement: &paidAt, CreatedAt: now, UpdatedAt: now}

	t.Run("inserted", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewDuesRepository(db)

		mock.ExpectExec(`INSERT INTO adidy`).
			WithArgs(sqlmock.AnyArg(), memberID, 3, 2024, 2000, true, "2024-03-05", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM adidy d JOIN adherents a ON a\.id_adherent = d\.adherent_id WHERE d\.id = \$1`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(duesColumns).
				AddRow("d1", memberID, "Rakoto", "Jean", 3, 2024, 2000, true, now, now, now))

		got, err := repo.InsertRecord(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, "Rakoto", got.Nom)
		require.NotNil(t, got.DatePaiement)
		assert.Equal(t, paidAt, *got.DatePaiement)
	})

	t.Run("period already recorded", func(t *testing.T) {
		db, mock := newMock(t)
		repo := sqlxrepos.NewDuesRepository(db)

		mock.ExpectExec(`INSERT INTO adidy`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "adidy_adherent_id_mois_annee_key"})

		_, err := repo.InsertRecord(context.Background(), rec)
		assert.ErrorIs(t, err, dues.ErrConflict)
	})
}

func TestDuesRepository_GetRecordByPeriod(t *testing.T) {
	db, mock := newMock(t)
	repo := sqlxrepos.NewDuesRepository(db)

	mock.ExpectQuery(`WHERE d\.adherent_id = \$1 AND d\.mois = \$2 AND d\.annee = \$3`).
		WithArgs(memberID, 4, 2024).
		WillReturnRows(sqlmock.NewRows(duesColumns))

	_, err := repo.GetRecordByPeriod(context.Background(), memberID, 4, 2024)
	assert.ErrorIs(t, err, dues.ErrNotFound)
}

func TestDuesRepository_QueryRecords(t *testing.T) {
	db, mock := newMock(t)
	repo := sqlxrepos.NewDuesRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE d\.annee = \$1 AND NOT d\.paye AND d\.montant >= \$2 ORDER BY d\.annee DESC, d\.mois DESC, LOWER\(a\.nom\), d\.id$`).
		WithArgs(2024, 1000).
		WillReturnRows(sqlmock.NewRows(duesColumns).
			AddRow("d2", memberID, "Rakoto", "Jean", 4, 2024, 2000, false, nil, now, now).
			AddRow("d1", memberID, "Rakoto", "Jean", 3, 2024, 1500, false, nil, now, now))

	records, err := repo.QueryRecords(context.Background(), dues.QueryFilter{Annee: 2024, UnpaidOnly: true, MinAmount: 1000})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 4, records[0].Mois)
	assert.Nil(t, records[0].DatePaiement)
}
