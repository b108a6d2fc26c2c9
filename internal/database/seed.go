package database

import (
	"database/sql"
	"fmt"
	"time"
)

// defaultSetting is one row of the versioned seed table. The seed is applied
// once per store open with insert-or-ignore semantics, so upgrades never
// clobber values a user has changed.
type defaultSetting struct {
	Key         string
	Value       string
	Description string
}

var defaultSettings = []defaultSetting{
	{"app_version", "1.2.0", "Application schema version"},
	{"max_file_size", "52428800", "Maximum upload size in bytes (50MB)"},
	{"auto_backup", "true", "Automatic store backup"},
	{"backup_frequency", "7", "Backup interval in days"},
	{"max_history_records", "1000", "Maximum retained history rows"},
	{"default_export_format", "json", "Default export format"},
	{"theme", "light", "Application theme"},
	{"language", "en", "Application locale"},
	{"auto_save_comparisons", "true", "Save comparison runs automatically"},
	{"notification_enabled", "true", "Notifications enabled"},
}

// execer covers *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// seedDefaultSettings inserts missing defaults. Rows whose key already exists
// are skipped silently; only a failing insert statement fails the seed.
func seedDefaultSettings(db execer, now time.Time) error {
	for _, st := range defaultSettings {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO app_settings (key, value, description, updated_date)
			VALUES (?, ?, ?, ?)`,
			st.Key, st.Value, st.Description, now,
		)
		if err != nil {
			return fmt.Errorf("seeding setting %q: %w", st.Key, err)
		}
	}
	return nil
}
