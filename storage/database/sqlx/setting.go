package sqlxrepos

import (
	"context"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/setting"
)

const selectSettings = `SELECT key, value, description, updated_at, updated_by FROM system_settings`

type settingRepository struct {
	exec core.DBExecutor
}

func NewSettingRepository(exec core.DBExecutor) setting.Repository {
	return &settingRepository{exec: exec}
}

func (repo settingRepository) ListSettings(ctx context.Context) ([]setting.Setting, error) {
	settings := make([]setting.Setting, 0)
	if err := repo.exec.SelectContext(ctx, &settings, selectSettings+` ORDER BY key`); err != nil {
		return nil, core.NewRepositoryError("setting.list", err)
	}
	return settings, nil
}

func (repo settingRepository) GetSetting(ctx context.Context, key string) (setting.Setting, error) {
	var s setting.Setting
	if err := repo.exec.GetContext(ctx, &s, repo.exec.Rebind(selectSettings+` WHERE key = ?`), key); err != nil {
		return setting.Setting{}, trapNoRowsErr(err, setting.ErrNotFound, "setting.get")
	}
	return s, nil
}

// UpsertSetting keeps the stored description when `s` has none.
func (repo settingRepository) UpsertSetting(ctx context.Context, s setting.Setting) (setting.Setting, error) {
	q := `INSERT INTO system_settings (key, value, description, updated_at, updated_by)
		VALUES (:key, :value, :description, :updated_at, :updated_by)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			description = COALESCE(EXCLUDED.description, system_settings.description),
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`
	if _, err := repo.exec.NamedExecContext(ctx, q, s); err != nil {
		return setting.Setting{}, core.NewRepositoryError("setting.upsert", err)
	}
	return repo.GetSetting(ctx, s.Key)
}
