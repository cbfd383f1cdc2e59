package printer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/posprint/printbridge/internal/db"
)

// SettingsStore persists the preferred printer in the sqlite settings table.
type SettingsStore struct {
	settings *db.SettingsOperations
}

func NewSettingsStore(settings *db.SettingsOperations) *SettingsStore {
	if settings == nil {
		settings = db.Settings
	}
	return &SettingsStore{settings: settings}
}

func (s *SettingsStore) Preferred(ctx context.Context) (string, error) {
	setting, err := s.settings.GetSetting(ctx, db.SettingPreferredPrinter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

func (s *SettingsStore) SetPreferred(ctx context.Context, name string) error {
	return s.settings.SetSetting(ctx, db.SettingPreferredPrinter, name, false)
}
