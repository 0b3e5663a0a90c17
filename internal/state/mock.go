package state

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrClosed is returned by Mock after Close.
var ErrClosed = errors.New("store closed")

// Mock is an in-memory Store for tests.
type Mock struct {
	mu      sync.Mutex
	delay   *time.Duration
	volume  *float64
	token   string
	session *LastfmSession
	pending []PendingScrobble
	nextID  int64
	closed  bool
}

// NewMock creates a new mock store for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) GetDownloadDelay() (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delay == nil {
		return 0, false, nil
	}
	return *m.delay, true, nil
}

func (m *Mock) SaveDownloadDelay(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.delay = &d
	return nil
}

func (m *Mock) GetVolume() (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.volume == nil {
		return 0, false, nil
	}
	return *m.volume, true, nil
}

func (m *Mock) SaveVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.volume = &volume
	return nil
}

func (m *Mock) GetAuthToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Mock) SaveAuthToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.token = token
	return nil
}

func (m *Mock) GetLastfmSession() (*LastfmSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *Mock) SaveLastfmSession(username, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.session = &LastfmSession{Username: username, SessionKey: sessionKey, LinkedAt: time.Now()}
	return nil
}

func (m *Mock) AddPendingScrobble(s PendingScrobble) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.nextID++
	s.ID = m.nextID
	s.Attempts = 0
	s.CreatedAt = time.Now()
	m.pending = append(m.pending, s)
	return nil
}

func (m *Mock) GetPendingScrobbles(limit int) ([]PendingScrobble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pending[:min(limit, len(m.pending))]), nil
}

func (m *Mock) DeletePendingScrobbles(ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = slices.DeleteFunc(m.pending, func(s PendingScrobble) bool {
		return slices.Contains(ids, s.ID)
	})
	return nil
}

func (m *Mock) MarkPendingScrobblesFailed(errMsg string, ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pending {
		if slices.Contains(ids, m.pending[i].ID) {
			m.pending[i].Attempts++
			m.pending[i].LastError = errMsg
		}
	}
	return nil
}

func (m *Mock) DeleteOldPendingScrobbles(maxAge time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	m.pending = slices.DeleteFunc(m.pending, func(s PendingScrobble) bool {
		return s.Timestamp.Before(cutoff)
	})
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Store at compile time.
var _ Store = (*Mock)(nil)
