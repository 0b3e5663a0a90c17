package state

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/llehouerou/riptide/internal/db"
)

// Setting keys.
const (
	KeyDownloadDelay = "download_delay_ms"
	KeyVolume        = "volume"
	KeyAuthToken     = "auth_token"
)

// GetSetting returns the stored value for key. ok is false when unset.
func (m *Manager) GetSetting(key string) (value string, ok bool, err error) {
	err = m.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores value under key.
func (m *Manager) SetSetting(key, value string) error {
	return m.SetSettings(map[string]string{key: value})
}

// SetSettings stores several values atomically.
func (m *Manager) SetSettings(values map[string]string) error {
	now := m.clock().Unix()
	rows := make([][]any, 0, len(values))
	for k, v := range values {
		rows = append(rows, []any{k, v, now})
	}
	return db.WithTx(m.db, func(tx *sql.Tx) error {
		return db.ExecEach(tx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, rows)
	})
}

// DeleteSetting removes key.
func (m *Manager) DeleteSetting(key string) error {
	_, err := m.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// GetDownloadDelay returns the saved stabilization delay, or ok=false.
func (m *Manager) GetDownloadDelay() (time.Duration, bool, error) {
	v, ok, err := m.GetSetting(KeyDownloadDelay)
	if err != nil || !ok {
		return 0, false, err
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return 0, false, nil //nolint:nilerr // a corrupt value means unset
	}
	return time.Duration(ms) * time.Millisecond, true, nil
}

// SaveDownloadDelay persists the stabilization delay.
func (m *Manager) SaveDownloadDelay(d time.Duration) error {
	return m.SetSetting(KeyDownloadDelay, strconv.FormatInt(d.Milliseconds(), 10))
}

// GetVolume returns the saved volume, or ok=false.
func (m *Manager) GetVolume() (float64, bool, error) {
	v, ok, err := m.GetSetting(KeyVolume)
	if err != nil || !ok {
		return 0, false, err
	}
	vol, err := strconv.ParseFloat(v, 64)
	if err != nil || vol < 0 || vol > 1 {
		return 0, false, nil //nolint:nilerr // a corrupt value means unset
	}
	return vol, true, nil
}

// SaveVolume persists the volume level.
func (m *Manager) SaveVolume(volume float64) error {
	return m.SetSetting(KeyVolume, strconv.FormatFloat(volume, 'f', -1, 64))
}

// GetAuthToken returns the last backend token, or "".
func (m *Manager) GetAuthToken() (string, error) {
	v, _, err := m.GetSetting(KeyAuthToken)
	return v, err
}

// SaveAuthToken persists the backend token.
func (m *Manager) SaveAuthToken(token string) error {
	if token == "" {
		return m.DeleteSetting(KeyAuthToken)
	}
	return m.SetSetting(KeyAuthToken, token)
}
