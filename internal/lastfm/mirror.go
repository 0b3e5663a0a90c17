package lastfm

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/riptide/internal/history"
	"github.com/llehouerou/riptide/internal/playlist"
	"github.com/llehouerou/riptide/internal/state"
)

const (
	maxAttempts = 10
	// Last.fm rejects scrobbles older than two weeks.
	maxPendingAge = 14 * 24 * time.Hour
)

// Scrobbler submits listens. Client implements it.
type Scrobbler interface {
	UpdateNowPlaying(track ScrobbleTrack) error
	Scrobble(track ScrobbleTrack) error
	ScrobbleBatch(tracks []ScrobbleTrack) error
}

// PendingStore keeps scrobbles that could not be submitted.
type PendingStore interface {
	AddPendingScrobble(s state.PendingScrobble) error
	GetPendingScrobbles(limit int) ([]state.PendingScrobble, error)
	DeletePendingScrobbles(ids ...int64) error
	MarkPendingScrobblesFailed(errMsg string, ids ...int64) error
	DeleteOldPendingScrobbles(maxAge time.Duration) error
}

var _ Scrobbler = (*Client)(nil)

// Mirror copies listening history to Last.fm. It plugs into the history
// reporter through Hooks: a record start sends "now playing", and the
// completion transition sends the scrobble. Failed scrobbles are queued
// in the store and retried by RetryPending.
type Mirror struct {
	client Scrobbler
	store  PendingStore // may be nil
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current string // track ID of the open record
	startedAt time.Time

	wg sync.WaitGroup
}

// NewMirror creates a mirror. store may be nil to drop failed scrobbles.
func NewMirror(client Scrobbler, store PendingStore, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Hooks returns the reporter hooks that feed the mirror.
func (m *Mirror) Hooks() history.Hooks {
	return history.Hooks{
		OnStarted:   m.started,
		OnCompleted: m.completed,
	}
}

func (m *Mirror) started(t playlist.Track) {
	m.mu.Lock()
	m.current = t.ID
	m.startedAt = m.now()
	at := m.startedAt
	m.mu.Unlock()

	st := FromTrack(t, at)
	if !st.Scrobbleable() {
		return
	}
	m.wg.Go(func() {
		if err := m.client.UpdateNowPlaying(st); err != nil {
			m.logger.Warn("lastfm now playing failed", "track", t.ID, "err", err)
		}
	})
}

func (m *Mirror) completed(t playlist.Track) {
	m.mu.Lock()
	at := m.now()
	if m.current == t.ID {
		at = m.startedAt
	}
	m.mu.Unlock()

	st := FromTrack(t, at)
	if !st.Scrobbleable() {
		m.logger.Debug("lastfm skip scrobble", "track", t.ID)
		return
	}
	m.wg.Go(func() {
		err := m.client.Scrobble(st)
		if err == nil {
			return
		}
		m.logger.Warn("lastfm scrobble failed, queued", "track", t.ID, "err", err)
		if m.store == nil {
			return
		}
		if qerr := m.store.AddPendingScrobble(state.PendingScrobble{
			Artist:       st.Artist,
			Track:        st.Track,
			Album:        st.Album,
			DurationSecs: int(st.Duration.Seconds()),
			Timestamp:    st.Timestamp,
			LastError:    err.Error(),
		}); qerr != nil {
			m.logger.Error("queue scrobble", "err", qerr)
		}
	})
}

// RetryPending submits queued scrobbles in batches. It returns how many
// were accepted.
func (m *Mirror) RetryPending() (int, error) {
	if m.store == nil {
		return 0, nil
	}
	if err := m.store.DeleteOldPendingScrobbles(maxPendingAge); err != nil {
		return 0, fmt.Errorf("prune pending scrobbles: %w", err)
	}

	pending, err := m.store.GetPendingScrobbles(MaxBatch)
	if err != nil {
		return 0, fmt.Errorf("load pending scrobbles: %w", err)
	}

	var (
		batch []ScrobbleTrack
		ids   []int64
		dead  []int64
	)
	for _, p := range pending {
		if p.Attempts >= maxAttempts {
			dead = append(dead, p.ID)
			continue
		}
		batch = append(batch, ScrobbleTrack{
			Artist:    p.Artist,
			Track:     p.Track,
			Album:     p.Album,
			Duration:  time.Duration(p.DurationSecs) * time.Second,
			Timestamp: p.Timestamp,
		})
		ids = append(ids, p.ID)
	}

	if len(dead) > 0 {
		m.logger.Info("dropping scrobbles after repeated failures", "count", len(dead))
		if err := m.store.DeletePendingScrobbles(dead...); err != nil {
			return 0, fmt.Errorf("drop pending scrobbles: %w", err)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}

	if err := m.client.ScrobbleBatch(batch); err != nil {
		if merr := m.store.MarkPendingScrobblesFailed(err.Error(), ids...); merr != nil {
			m.logger.Error("mark pending scrobbles", "err", merr)
		}
		return 0, err
	}
	if err := m.store.DeletePendingScrobbles(ids...); err != nil {
		return len(ids), fmt.Errorf("clear pending scrobbles: %w", err)
	}
	return len(ids), nil
}

// Close waits for in-flight submissions.
func (m *Mirror) Close() {
	m.wg.Wait()
}
