package state

import "time"

// Store is the persisted-settings contract used by the app.
type Store interface {
	GetDownloadDelay() (time.Duration, bool, error)
	SaveDownloadDelay(d time.Duration) error
	GetVolume() (float64, bool, error)
	SaveVolume(volume float64) error
	GetAuthToken() (string, error)
	SaveAuthToken(token string) error

	GetLastfmSession() (*LastfmSession, error)
	SaveLastfmSession(username, sessionKey string) error

	// Scrobble retry queue
	AddPendingScrobble(s PendingScrobble) error
	GetPendingScrobbles(limit int) ([]PendingScrobble, error)
	DeletePendingScrobbles(ids ...int64) error
	MarkPendingScrobblesFailed(errMsg string, ids ...int64) error
	DeleteOldPendingScrobbles(maxAge time.Duration) error

	Close() error
}

// Verify Manager implements Store at compile time.
var _ Store = (*Manager)(nil)
