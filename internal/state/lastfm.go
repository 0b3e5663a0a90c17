package state

import (
	"database/sql"
	"errors"
	"time"

	"github.com/llehouerou/riptide/internal/db"
)

// LastfmSession is the linked Last.fm account.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// PendingScrobble is a scrobble Last.fm did not accept yet.
type PendingScrobble struct {
	ID           int64
	Artist       string
	Track        string
	Album        string
	DurationSecs int
	Timestamp    time.Time // when the listen started
	Attempts     int
	LastError    string
	CreatedAt    time.Time
}

// GetLastfmSession returns nil, nil when no account is linked.
func (m *Manager) GetLastfmSession() (*LastfmSession, error) {
	var (
		s      LastfmSession
		linked int64
	)
	err := m.db.QueryRow(`SELECT username, session_key, linked_at FROM lastfm_session WHERE id = 1`).
		Scan(&s.Username, &s.SessionKey, &linked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil //nolint:nilnil // not linked
	case err != nil:
		return nil, err
	}
	s.LinkedAt = time.Unix(linked, 0)
	return &s, nil
}

// SaveLastfmSession links an account, replacing any previous one.
func (m *Manager) SaveLastfmSession(username, sessionKey string) error {
	_, err := m.db.Exec(`
		INSERT INTO lastfm_session (id, username, session_key, linked_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			session_key = excluded.session_key,
			linked_at = excluded.linked_at
	`, username, sessionKey, m.clock().Unix())
	return err
}

func (m *Manager) DeleteLastfmSession() error {
	_, err := m.db.Exec(`DELETE FROM lastfm_session WHERE id = 1`)
	return err
}

// AddPendingScrobble queues s with zero attempts.
func (m *Manager) AddPendingScrobble(s PendingScrobble) error {
	_, err := m.db.Exec(`
		INSERT INTO lastfm_pending_scrobbles
			(artist, track, album, duration_seconds, timestamp, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, s.Artist, s.Track, s.Album, s.DurationSecs, s.Timestamp.Unix(), s.LastError, m.clock().Unix())
	return err
}

// GetPendingScrobbles returns up to limit queued scrobbles in queue order.
func (m *Manager) GetPendingScrobbles(limit int) ([]PendingScrobble, error) {
	rows, err := m.db.Query(`
		SELECT id, artist, track, album, duration_seconds, timestamp, attempts, last_error, created_at
		FROM lastfm_pending_scrobbles
		ORDER BY created_at, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingScrobble
	for rows.Next() {
		s, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanPending(rows *sql.Rows) (PendingScrobble, error) {
	var (
		s                PendingScrobble
		album, lastError sql.NullString
		started, created int64
	)
	err := rows.Scan(&s.ID, &s.Artist, &s.Track, &album, &s.DurationSecs,
		&started, &s.Attempts, &lastError, &created)
	s.Album = db.NullStringValue(album)
	s.LastError = db.NullStringValue(lastError)
	s.Timestamp = time.Unix(started, 0)
	s.CreatedAt = time.Unix(created, 0)
	return s, err
}

// DeletePendingScrobbles removes submitted scrobbles.
func (m *Manager) DeletePendingScrobbles(ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := db.In(ids)
	_, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE id `+in, args...)
	return err
}

// MarkPendingScrobblesFailed counts one more attempt and records the error.
func (m *Manager) MarkPendingScrobblesFailed(errMsg string, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := db.In(ids)
	_, err := m.db.Exec(`
		UPDATE lastfm_pending_scrobbles
		SET attempts = attempts + 1, last_error = ?
		WHERE id `+in, append([]any{errMsg}, args...)...)
	return err
}

// DeleteOldPendingScrobbles removes pending scrobbles older than maxAge.
// Last.fm rejects scrobbles more than two weeks old.
func (m *Manager) DeleteOldPendingScrobbles(maxAge time.Duration) error {
	cutoff := m.clock().Add(-maxAge).Unix()
	_, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles WHERE timestamp < ?`, cutoff)
	return err
}

// CountPendingScrobbles returns how many scrobbles are waiting for retry.
func (m *Manager) CountPendingScrobbles() (int, error) {
	var n int
	err := m.db.QueryRow(`SELECT COUNT(*) FROM lastfm_pending_scrobbles`).Scan(&n)
	return n, err
}

// ClearPendingScrobbles drops every queued scrobble.
func (m *Manager) ClearPendingScrobbles() error {
	_, err := m.db.Exec(`DELETE FROM lastfm_pending_scrobbles`)
	return err
}
