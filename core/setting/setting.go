package setting

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core/event"
)

// Keys
const (
	KeyAppName            = "app_name"
	KeyEmailNotifications = "email_notifications"
	KeyAutoBackup         = "auto_backup"
	KeyMaxUsersPerGroup   = "max_users_per_group"
	KeySessionTimeout     = "session_timeout"
	KeyMaintenanceMode    = "maintenance_mode"
)

var (
	// errors
	ErrNotFound = errors.New("setting not found")
)

type Setting struct {
	Key         string         `json:"key" db:"key"`
	Value       types.JSONText `json:"value" db:"value"`
	Description null.String    `json:"description" db:"description"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	UpdatedBy   null.String    `json:"updated_by" db:"updated_by"`
}

// SystemConfig is the typed view of the known settings.
type SystemConfig struct {
	AppName            string    `json:"appName" validate:"required,max=100"`
	EmailNotifications bool      `json:"emailNotifications"`
	AutoBackup         bool      `json:"autoBackup"`
	MaxUsersPerGroup   int       `json:"maxUsersPerGroup" validate:"min=1,max=1000"`
	SessionTimeout     int       `json:"sessionTimeout" validate:"min=5,max=1440"` // minutes
	MaintenanceMode    bool      `json:"maintenanceMode"`
	LastSaved          time.Time `json:"lastSaved,omitempty"`
}

func Defaults() SystemConfig {
	return SystemConfig{
		AppName:            "FJKM Vatomandry",
		EmailNotifications: true,
		AutoBackup:         true,
		MaxUsersPerGroup:   50,
		SessionTimeout:     30,
		MaintenanceMode:    false,
	}
}

var descriptions = map[string]string{
	KeyAppName:            "Nom de l'application",
	KeyEmailNotifications: "Notifications par email",
	KeyAutoBackup:         "Sauvegarde automatique",
	KeyMaxUsersPerGroup:   "Nombre maximum d'adhérents par groupe",
	KeySessionTimeout:     "Durée de session (minutes)",
	KeyMaintenanceMode:    "Mode maintenance",
}

// FromSettings overlays the stored values on the defaults. Unknown keys and unreadable
// values are ignored. LastSaved is the most recent update.
func FromSettings(settings []Setting) SystemConfig {
	cfg := Defaults()
	for _, s := range settings {
		switch s.Key {
		case KeyAppName:
			if v, ok := asString(s.Value); ok {
				cfg.AppName = v
			}
		case KeyEmailNotifications:
			cfg.EmailNotifications = asBool(s.Value)
		case KeyAutoBackup:
			cfg.AutoBackup = asBool(s.Value)
		case KeyMaxUsersPerGroup:
			if v, ok := asInt(s.Value); ok {
				cfg.MaxUsersPerGroup = v
			}
		case KeySessionTimeout:
			if v, ok := asInt(s.Value); ok {
				cfg.SessionTimeout = v
			}
		case KeyMaintenanceMode:
			cfg.MaintenanceMode = asBool(s.Value)
		default:
			continue
		}
		if s.UpdatedAt.After(cfg.LastSaved) {
			cfg.LastSaved = s.UpdatedAt
		}
	}
	return cfg
}

func (cfg SystemConfig) values() []struct {
	key   string
	value interface{}
} {
	return []struct {
		key   string
		value interface{}
	}{
		{KeyAppName, cfg.AppName},
		{KeyEmailNotifications, cfg.EmailNotifications},
		{KeyAutoBackup, cfg.AutoBackup},
		{KeyMaxUsersPerGroup, cfg.MaxUsersPerGroup},
		{KeySessionTimeout, cfg.SessionTimeout},
		{KeyMaintenanceMode, cfg.MaintenanceMode},
	}
}

// booleans are stored either as JSON booleans or as "true"/"false" strings.
func asBool(v types.JSONText) bool {
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	s, _ := asString(v)
	return s == "true"
}

func asString(v types.JSONText) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func asInt(v types.JSONText) (int, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return int(f), true
	}
	if s, ok := asString(v); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

type (
	Repository interface {
		ListSettings(ctx context.Context) ([]Setting, error)
		GetSetting(ctx context.Context, key string) (Setting, error)
		// UpsertSetting inserts the setting or replaces the one with the same key.
		UpsertSetting(ctx context.Context, s Setting) (Setting, error)
	}

	Service struct {
		repo     Repository
		bus      *event.Bus
		validate *validator.Validate
		nowFn    func() time.Time
	}
)

func NewService(repo Repository, bus *event.Bus, validate *validator.Validate) *Service {
	return &Service{repo: repo, bus: bus, validate: validate, nowFn: time.Now}
}

func (svc *Service) List(ctx context.Context) ([]Setting, error) {
	return svc.repo.ListSettings(ctx)
}

func (svc *Service) Get(ctx context.Context, key string) (Setting, error) {
	return svc.repo.GetSetting(ctx, key)
}

// Save stores one raw JSON value.
func (svc *Service) Save(ctx context.Context, key string, value json.RawMessage, updatedBy string) (Setting, error) {
	if !json.Valid(value) {
		return Setting{}, errors.New("setting value must be valid JSON")
	}
	s := Setting{
		Key:       key,
		Value:     types.JSONText(append([]byte(nil), value...)),
		UpdatedAt: svc.nowFn().UTC(),
		UpdatedBy: null.NewString(updatedBy, updatedBy != ""),
	}
	if desc, ok := descriptions[key]; ok {
		s.Description = null.StringFrom(desc)
	}

	saved, err := svc.repo.UpsertSetting(ctx, s)
	if err != nil {
		return Setting{}, err
	}
	svc.bus.Publish(event.Change{Table: event.TableSettings, Action: event.Update, ID: key, Label: key, Actor: updatedBy})
	return saved, nil
}

// Config returns the typed system configuration.
func (svc *Service) Config(ctx context.Context) (SystemConfig, error) {
	settings, err := svc.repo.ListSettings(ctx)
	if err != nil {
		return SystemConfig{}, err
	}
	return FromSettings(settings), nil
}

// SaveConfig upserts every known key; each write emits its own change event.
func (svc *Service) SaveConfig(ctx context.Context, cfg SystemConfig, updatedBy string) (SystemConfig, error) {
	if err := svc.validate.Struct(cfg); err != nil {
		return SystemConfig{}, err
	}
	for _, kv := range cfg.values() {
		raw, err := json.Marshal(kv.value)
		if err != nil {
			return SystemConfig{}, err
		}
		if _, err := svc.Save(ctx, kv.key, raw, updatedBy); err != nil {
			return SystemConfig{}, err
		}
	}
	return svc.Config(ctx)
}

// Reset restores the defaults.
func (svc *Service) Reset(ctx context.Context, updatedBy string) (SystemConfig, error) {
	return svc.SaveConfig(ctx, Defaults(), updatedBy)
}

// MaxUsersPerGroup reads the group size cap; the default applies when the store fails.
func (svc *Service) MaxUsersPerGroup(ctx context.Context) int {
	cfg, err := svc.Config(ctx)
	if err != nil {
		return Defaults().MaxUsersPerGroup
	}
	return cfg.MaxUsersPerGroup
}

// SessionTimeout reads the session lifetime; the default applies when the store fails.
func (svc *Service) SessionTimeout(ctx context.Context) time.Duration {
	cfg, err := svc.Config(ctx)
	if err != nil {
		cfg = Defaults()
	}
	return time.Duration(cfg.SessionTimeout) * time.Minute
}
