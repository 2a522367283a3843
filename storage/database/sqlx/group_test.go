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
	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
	sqlxrepos "github.com/trezcool/mpiangona/storage/database/sqlx"
)

const groupID = "5c0e8a7e-1b8b-4bb2-8e07-2b1c63f0b001"

var groupColumns = []string{"id_groupe", "nom_groupe", "description", "created_at", "updated_at", "adherent_count"}

func TestGroupRepository_GetAndQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := sqlxrepos.NewGroupRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`\(SELECT COUNT\(\*\) FROM adherents_groupes ag WHERE ag\.id_groupe = g\.id_groupe\) AS adherent_count FROM groupes g WHERE g\.id_groupe = \$1`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows(groupColumns).AddRow(groupID, "Chorale", nil, now, now, 12))

	g, err := repo.GetGroupByID(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, "Chorale", g.Nom)
	assert.Equal(t, 12, g.AdherentCount)

	mock.ExpectQuery(`FROM groupes g ORDER BY LOWER\(g\.nom_groupe\), g\.id_groupe$`).
		WillReturnRows(sqlmock.NewRows(groupColumns).
			AddRow(groupID, "Chorale", nil, now, now, 12).
			AddRow("5c0e8a7e-1b8b-4bb2-8e07-2b1c63f0b002", "Dorkasy", "Vehivavy", now, now, 0))

	groups, err := repo.QueryGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Vehivavy", groups[1].Description.String)
}

func TestGroupRepository_AddMembership(t *testing.T) {
	ms := group.Membership{MemberID: memberID, GroupID: groupID, DateAdhesion: core.NewDate(2024, time.March, 1)}

	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{name: "added"},
		{
			name:    "already a member",
			dbErr:   &pq.Error{Code: "23505", Constraint: "adherents_groupes_pkey"},
			wantErr: group.ErrAlreadyMember,
		},
		{
			name:    "unknown group",
			dbErr:   &pq.Error{Code: "23503", Constraint: "adherents_groupes_id_groupe_fkey"},
			wantErr: group.ErrNotFound,
		},
		{
			name:    "unknown member",
			dbErr:   &pq.Error{Code: "23503", Constraint: "adherents_groupes_id_adherent_fkey"},
			wantErr: member.ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := sqlxrepos.NewGroupRepository(db)

			expect := mock.ExpectExec(`INSERT INTO adherents_groupes \(id_adherent, id_groupe, date_adhesion\) VALUES \(\$1, \$2, \$3\)`).
				WithArgs(memberID, groupID, "2024-03-01")
			if tc.dbErr != nil {
				expect.WillReturnError(tc.dbErr)
			} else {
				expect.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.AddMembership(context.Background(), ms)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestGroupRepository_RemoveMembership(t *testing.T) {
	db, mock := newMock(t)
	repo := sqlxrepos.NewGroupRepository(db)
	ctx := context.Background()

	q := `DELETE FROM adherents_groupes WHERE id_adherent = \$1 AND id_groupe = \$2`
	mock.ExpectExec(q).WithArgs(memberID, groupID).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.RemoveMembership(ctx, memberID, groupID))

	mock.ExpectExec(q).WithArgs(memberID, groupID).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RemoveMembership(ctx, memberID, groupID), group.ErrNotMember)
}

func TestGroupRepository_QueryGroupMembers(t *testing.T) {
	db, mock := newMock(t)
	repo := sqlxrepos.NewGroupRepository(db)

	mock.ExpectQuery(`JOIN adherents_groupes ag ON ag\.id_adherent = a\.id_adherent WHERE ag\.id_groupe = \$1 ORDER BY a\.nom, a\.prenom`).
		WithArgs(groupID).
		WillReturnRows(memberRow(sqlmock.NewRows(memberColumns), memberID, "Rakoto", "Jean"))

	members, err := repo.QueryGroupMembers(context.Background(), groupID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, memberID, members[0].ID)
}
