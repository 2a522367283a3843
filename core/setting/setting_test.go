package setting_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/setting"
	inmemdb "github.com/trezcool/mpiangona/storage/database/inmem"
	"github.com/trezcool/mpiangona/testutil"
)

func TestFromSettings(t *testing.T) {
	t1 := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	tests := []struct {
		name     string
		settings []setting.Setting
		want     setting.SystemConfig
	}{
		{name: "defaults", want: setting.Defaults()},
		{
			name: "typed values",
			settings: []setting.Setting{
				{Key: setting.KeyAppName, Value: types.JSONText(`"FJKM Ambalakininy"`), UpdatedAt: t1},
				{Key: setting.KeyEmailNotifications, Value: types.JSONText(`false`), UpdatedAt: t2},
				{Key: setting.KeyMaxUsersPerGroup, Value: types.JSONText(`20`), UpdatedAt: t1},
			},
			want: func() setting.SystemConfig {
				cfg := setting.Defaults()
				cfg.AppName = "FJKM Ambalakininy"
				cfg.EmailNotifications = false
				cfg.MaxUsersPerGroup = 20
				cfg.LastSaved = t2
				return cfg
			}(),
		},
		{
			name: "string encoded values",
			settings: []setting.Setting{
				{Key: setting.KeyMaintenanceMode, Value: types.JSONText(`"true"`), UpdatedAt: t1},
				{Key: setting.KeyAutoBackup, Value: types.JSONText(`"false"`), UpdatedAt: t1},
				{Key: setting.KeySessionTimeout, Value: types.JSONText(`" 60 "`), UpdatedAt: t1},
			},
			want: func() setting.SystemConfig {
				cfg := setting.Defaults()
				cfg.MaintenanceMode = true
				cfg.AutoBackup = false
				cfg.SessionTimeout = 60
				cfg.LastSaved = t1
				return cfg
			}(),
		},
		{
			name: "unreadable and unknown values are ignored",
			settings: []setting.Setting{
				{Key: setting.KeyMaxUsersPerGroup, Value: types.JSONText(`"many"`), UpdatedAt: t1},
				{Key: "theme", Value: types.JSONText(`"dark"`), UpdatedAt: t2},
			},
			want: func() setting.SystemConfig {
				cfg := setting.Defaults()
				cfg.LastSaved = t1
				return cfg
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, setting.FromSettings(tt.settings))
		})
	}
}

func TestService(t *testing.T) {
	validate, _ := testutil.NewValidator()
	db := inmemdb.Open()
	bus := event.NewBus()
	var changes []event.Change
	bus.Subscribe(event.Tables(event.TableSettings), func(c event.Change) { changes = append(changes, c) })
	svc := setting.NewService(inmemdb.NewSettingRepository(db), bus, validate)
	ctx := context.Background()

	cfg, err := svc.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, setting.Defaults(), cfg)
	assert.Equal(t, 50, svc.MaxUsersPerGroup(ctx))
	assert.Equal(t, 30*time.Minute, svc.SessionTimeout(ctx))

	t.Run("save raw value", func(t *testing.T) {
		_, err := svc.Save(ctx, setting.KeySessionTimeout, json.RawMessage(`{`), "u1")
		assert.Error(t, err)

		s, err := svc.Save(ctx, setting.KeySessionTimeout, json.RawMessage(`"45"`), "u1")
		require.NoError(t, err)
		assert.Equal(t, "Durée de session (minutes)", s.Description.String)
		assert.Equal(t, "u1", s.UpdatedBy.String)
		assert.Equal(t, 45*time.Minute, svc.SessionTimeout(ctx))

		got, err := svc.Get(ctx, setting.KeySessionTimeout)
		require.NoError(t, err)
		assert.Equal(t, `"45"`, got.Value.String())

		_, err = svc.Get(ctx, "theme")
		assert.ErrorIs(t, err, setting.ErrNotFound)
	})

	t.Run("save config", func(t *testing.T) {
		changes = nil
		cfg := setting.Defaults()
		cfg.MaxUsersPerGroup = 0
		_, err := svc.SaveConfig(ctx, cfg, "u1")
		assert.Error(t, err)
		assert.Empty(t, changes)

		cfg.MaxUsersPerGroup = 10
		cfg.AppName = "FJKM"
		saved, err := svc.SaveConfig(ctx, cfg, "u1")
		require.NoError(t, err)
		assert.Equal(t, 10, saved.MaxUsersPerGroup)
		assert.Equal(t, "FJKM", saved.AppName)
		assert.False(t, saved.LastSaved.IsZero())
		assert.Len(t, changes, 6, "one event per key")
		assert.Equal(t, 10, svc.MaxUsersPerGroup(ctx))

		settings, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, settings, 6)
	})

	t.Run("reset", func(t *testing.T) {
		cfg, err := svc.Reset(ctx, "u1")
		require.NoError(t, err)
		cfg.LastSaved = time.Time{}
		assert.Equal(t, setting.Defaults(), cfg)
	})

	t.Run("store failure falls back to defaults", func(t *testing.T) {
		db.FailWith = errors.New("down")
		defer func() { db.FailWith = nil }()
		_, err := svc.Config(ctx)
		assert.Error(t, err)
		assert.Equal(t, 50, svc.MaxUsersPerGroup(ctx))
		assert.Equal(t, 30*time.Minute, svc.SessionTimeout(ctx))
	})
}
