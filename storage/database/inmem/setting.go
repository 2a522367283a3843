package inmemdb

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx/types"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/setting"
)

type settingRepository struct {
	db *DB
}

func NewSettingRepository(db *DB) setting.Repository {
	return &settingRepository{db: db}
}

func copySetting(s setting.Setting) setting.Setting {
	s.Value = append(types.JSONText(nil), s.Value...)
	return s
}

func (repo *settingRepository) ListSettings(context.Context) ([]setting.Setting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return nil, core.NewRepositoryError("setting.list", err)
	}

	settings := make([]setting.Setting, 0, len(repo.db.settings))
	for _, s := range repo.db.settings {
		settings = append(settings, copySetting(s))
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}

func (repo *settingRepository) GetSetting(_ context.Context, key string) (setting.Setting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.FailWith; err != nil {
		return setting.Setting{}, core.NewRepositoryError("setting.get", err)
	}

	if s, ok := repo.db.settings[key]; ok {
		return copySetting(s), nil
	}
	return setting.Setting{}, setting.ErrNotFound
}

func (repo *settingRepository) UpsertSetting(_ context.Context, s setting.Setting) (setting.Setting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.FailWith; err != nil {
		return setting.Setting{}, core.NewRepositoryError("setting.upsert", err)
	}

	if orig, ok := repo.db.settings[s.Key]; ok && !s.Description.Valid {
		s.Description = orig.Description
	}
	s = copySetting(s)
	repo.db.settings[s.Key] = s
	return copySetting(s), nil
}
