package db

const (
	GetSetting = `
		SELECT value, encrypted FROM settings WHERE key = ?
	`

	SetSetting = `
		INSERT INTO settings (key, value, encrypted)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, encrypted = ?, updated_at = CURRENT_TIMESTAMP
	`

	DeleteSetting = `DELETE FROM settings WHERE key = ?`
)
