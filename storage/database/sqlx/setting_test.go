package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core/setting"
	sqlxrepos "github.com/trezcool/mpiangona/storage/database/sqlx"
)

var settingColumns = []string{"key", "value", "description", "updated_at", "updated_by"}

func TestSettingRepository_UpsertSetting(t *testing.T) {
	db, mock := newMock(t)
	repo := sqlxrepos.NewSettingRepository(db)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO system_settings .* ON CONFLICT \(key\) DO UPDATE SET value = EXCLUDED\.value, ` +
		`description = COALESCE\(EXCLUDED\.description, system_settings\.description\)`).
		WithArgs("max_members_per_group", []byte("40"), nil, now, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT key, value, description, updated_at, updated_by FROM system_settings WHERE key = \$1`).
		WithArgs("max_members_per_group").
		WillReturnRows(sqlmock.NewRows(settingColumns).
			AddRow("max_members_per_group", []byte("40"), "Nombre maximum de membres par groupe", now, userID))

	s, err := repo.UpsertSetting(context.Background(), setting.Setting{
		Key:       "max_members_per_group",
		Value:     types.JSONText("40"),
		UpdatedAt: now,
		UpdatedBy: null.StringFrom(userID),
	})
	require.NoError(t, err)
	assert.Equal(t, "Nombre maximum de membres par groupe", s.Description.String)
	assert.JSONEq(t, "40", s.Value.String())
}

func TestSettingRepository_Get(t *testing.T) {
	db, mock := newMock(t)
	repo := sqlxrepos.NewSettingRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM system_settings WHERE key = \$1`).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows(settingColumns))
	_, err := repo.GetSetting(ctx, "unknown")
	assert.ErrorIs(t, err, setting.ErrNotFound)

	mock.ExpectQuery(`FROM system_settings ORDER BY key`).
		WillReturnRows(sqlmock.NewRows(settingColumns).
			AddRow("church_name", []byte(`"FJKM Vatomandry"`), nil, time.Now(), nil))
	settings, err := repo.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.False(t, settings[0].UpdatedBy.Valid)
}
