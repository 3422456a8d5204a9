package overlay

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SettingsStore is the persistence port for overlay and template
// settings. Camera-scoped keys live per camera; plugin-scoped keys are
// global (templates, shared phrases).
type SettingsStore interface {
	// GetCameraSettings returns every settings key of one camera.
	GetCameraSettings(ctx context.Context, cameraID string) (map[string]string, error)

	// SetCameraSetting writes one camera-scoped key.
	SetCameraSetting(ctx context.Context, cameraID, key, value string) error

	// DeleteCameraSettings removes every camera-scoped key with the
	// given prefix. Deleting by a vanished overlay's prefix prunes its
	// configuration.
	DeleteCameraSettings(ctx context.Context, cameraID, prefix string) error

	// GetPluginSettings returns every plugin-scoped key.
	GetPluginSettings(ctx context.Context) (map[string]string, error)

	// SetPluginSetting writes one plugin-scoped key.
	SetPluginSetting(ctx context.Context, key, value string) error

	// DeletePluginSettings removes every plugin-scoped key with the
	// given prefix.
	DeletePluginSettings(ctx context.Context, prefix string) error
}

// SQLiteSettingsStore implements SettingsStore over the camera_settings
// and plugin_settings tables.
type SQLiteSettingsStore struct {
	db *sql.DB
}

// NewSQLiteSettingsStore creates a settings store over an open SQLite
// connection.
func NewSQLiteSettingsStore(db *sql.DB) *SQLiteSettingsStore {
	return &SQLiteSettingsStore{db: db}
}

// GetCameraSettings returns every settings key of one camera.
func (s *SQLiteSettingsStore) GetCameraSettings(ctx context.Context, cameraID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM camera_settings WHERE camera_id = ?", cameraID)
	if err != nil {
		return nil, fmt.Errorf("querying camera settings: %w", err)
	}
	defer rows.Close()

	return scanSettings(rows)
}

// SetCameraSetting writes one camera-scoped key.
func (s *SQLiteSettingsStore) SetCameraSetting(ctx context.Context, cameraID, key, value string) error {
	query := `
		INSERT INTO camera_settings (camera_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (camera_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, cameraID, key, value, nowRFC3339())
	if err != nil {
		return fmt.Errorf("writing camera setting: %w", err)
	}
	return nil
}

// DeleteCameraSettings removes every camera-scoped key with the prefix.
func (s *SQLiteSettingsStore) DeleteCameraSettings(ctx context.Context, cameraID, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM camera_settings WHERE camera_id = ? AND key LIKE ? ESCAPE '\\'",
		cameraID, likePrefix(prefix))
	if err != nil {
		return fmt.Errorf("deleting camera settings: %w", err)
	}
	return nil
}

// GetPluginSettings returns every plugin-scoped key.
func (s *SQLiteSettingsStore) GetPluginSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM plugin_settings")
	if err != nil {
		return nil, fmt.Errorf("querying plugin settings: %w", err)
	}
	defer rows.Close()

	return scanSettings(rows)
}

// SetPluginSetting writes one plugin-scoped key.
func (s *SQLiteSettingsStore) SetPluginSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO plugin_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, key, value, nowRFC3339())
	if err != nil {
		return fmt.Errorf("writing plugin setting: %w", err)
	}
	return nil
}

// DeletePluginSettings removes every plugin-scoped key with the prefix.
func (s *SQLiteSettingsStore) DeletePluginSettings(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM plugin_settings WHERE key LIKE ? ESCAPE '\\'",
		likePrefix(prefix))
	if err != nil {
		return fmt.Errorf("deleting plugin settings: %w", err)
	}
	return nil
}

func scanSettings(rows *sql.Rows) (map[string]string, error) {
	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return settings, nil
}

// likePrefix escapes LIKE metacharacters in a key prefix.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+2)
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, prefix[i])
	}
	return string(escaped) + "%"
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
