package lastfm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/llehouerou/riptide/internal/playlist"
	"github.com/llehouerou/riptide/internal/state"
)

type fakeScrobbler struct {
	mu         sync.Mutex
	nowPlaying []ScrobbleTrack
	scrobbles  []ScrobbleTrack
	batches    [][]ScrobbleTrack
	err        error
}

func (f *fakeScrobbler) UpdateNowPlaying(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, t)
	return nil
}

func (f *fakeScrobbler) Scrobble(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbles = append(f.scrobbles, t)
	return f.err
}

func (f *fakeScrobbler) ScrobbleBatch(ts []ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, ts)
	return f.err
}

func openStore(t *testing.T) *state.Manager {
	t.Helper()
	m, err := state.OpenPath(":memory:")
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

var song = playlist.Track{
	ID:       "7",
	Title:    "Song",
	Artists:  []string{"Main", "Guest"},
	Album:    "LP",
	Duration: 3 * time.Minute,
}

func TestMirror_NowPlayingAndScrobble(t *testing.T) {
	fake := &fakeScrobbler{}
	m := NewMirror(fake, nil, nil)
	start := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return start }

	hooks := m.Hooks()
	hooks.OnStarted(song)
	m.now = func() time.Time { return start.Add(2 * time.Minute) }
	hooks.OnCompleted(song)
	m.Close()

	if len(fake.nowPlaying) != 1 || fake.nowPlaying[0].Artist != "Main" {
		t.Fatalf("now playing = %+v", fake.nowPlaying)
	}
	if len(fake.scrobbles) != 1 {
		t.Fatalf("scrobbles = %d, want 1", len(fake.scrobbles))
	}
	s := fake.scrobbles[0]
	if !s.Timestamp.Equal(start) {
		t.Errorf("scrobble timestamp = %v, want record start %v", s.Timestamp, start)
	}
	if s.Track != "Song" || s.Album != "LP" || s.Duration != 3*time.Minute {
		t.Errorf("scrobble = %+v", s)
	}
}

func TestMirror_SkipsShortTracks(t *testing.T) {
	fake := &fakeScrobbler{}
	m := NewMirror(fake, nil, nil)

	short := song
	short.Duration = 20 * time.Second
	m.Hooks().OnStarted(short)
	m.Hooks().OnCompleted(short)
	m.Close()

	if len(fake.nowPlaying) != 0 || len(fake.scrobbles) != 0 {
		t.Errorf("short track was sent: %+v %+v", fake.nowPlaying, fake.scrobbles)
	}
}

func TestMirror_FailedScrobbleIsQueued(t *testing.T) {
	fake := &fakeScrobbler{err: errors.New("offline")}
	store := openStore(t)
	m := NewMirror(fake, store, nil)

	m.Hooks().OnStarted(song)
	m.Hooks().OnCompleted(song)
	m.Close()

	pending, err := store.GetPendingScrobbles(MaxBatch)
	if err != nil {
		t.Fatalf("GetPendingScrobbles: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Artist != "Main" || pending[0].LastError != "offline" || pending[0].DurationSecs != 180 {
		t.Errorf("pending = %+v", pending[0])
	}
}

func TestMirror_RetryPending(t *testing.T) {
	fake := &fakeScrobbler{}
	store := openStore(t)
	m := NewMirror(fake, store, nil)

	now := time.Now()
	_ = store.AddPendingScrobble(state.PendingScrobble{Artist: "A", Track: "One", Timestamp: now.Add(-time.Hour)})
	_ = store.AddPendingScrobble(state.PendingScrobble{Artist: "A", Track: "Two", Timestamp: now.Add(-time.Minute)})
	_ = store.AddPendingScrobble(state.PendingScrobble{Artist: "A", Track: "Ancient", Timestamp: now.Add(-30 * 24 * time.Hour)})

	n, err := m.RetryPending()
	if err != nil {
		t.Fatalf("RetryPending: %v", err)
	}
	if n != 2 {
		t.Errorf("submitted = %d, want 2", n)
	}
	if len(fake.batches) != 1 || len(fake.batches[0]) != 2 || fake.batches[0][0].Track != "One" {
		t.Errorf("batches = %+v", fake.batches)
	}
	if pending, _ := store.GetPendingScrobbles(MaxBatch); len(pending) != 0 {
		t.Errorf("pending after retry = %+v", pending)
	}
}

func TestMirror_RetryFailureCountsAttempts(t *testing.T) {
	fake := &fakeScrobbler{err: errors.New("rate limited")}
	store := openStore(t)
	m := NewMirror(fake, store, nil)

	_ = store.AddPendingScrobble(state.PendingScrobble{Artist: "A", Track: "One", Timestamp: time.Now()})

	if _, err := m.RetryPending(); err == nil {
		t.Fatal("expected error")
	}
	pending, _ := store.GetPendingScrobbles(MaxBatch)
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "rate limited" {
		t.Errorf("pending = %+v", pending)
	}
}

func TestMirror_RetryDropsExhausted(t *testing.T) {
	fake := &fakeScrobbler{}
	store := openStore(t)
	m := NewMirror(fake, store, nil)

	_ = store.AddPendingScrobble(state.PendingScrobble{Artist: "A", Track: "One", Timestamp: time.Now()})
	pending, _ := store.GetPendingScrobbles(MaxBatch)
	for range maxAttempts {
		_ = store.MarkPendingScrobblesFailed("x", pending[0].ID)
	}

	n, err := m.RetryPending()
	if err != nil || n != 0 {
		t.Fatalf("RetryPending = %d, %v", n, err)
	}
	if len(fake.batches) != 0 {
		t.Errorf("exhausted scrobble was resent")
	}
	if pending, _ := store.GetPendingScrobbles(MaxBatch); len(pending) != 0 {
		t.Errorf("exhausted scrobble kept: %+v", pending)
	}
}

func TestScrobbleTrack_Scrobbleable(t *testing.T) {
	tests := []struct {
		name string
		in   ScrobbleTrack
		want bool
	}{
		{"regular", ScrobbleTrack{Artist: "A", Track: "T", Duration: time.Minute}, true},
		{"unknown length", ScrobbleTrack{Artist: "A", Track: "T"}, true},
		{"too short", ScrobbleTrack{Artist: "A", Track: "T", Duration: 29 * time.Second}, false},
		{"no artist", ScrobbleTrack{Track: "T", Duration: time.Minute}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Scrobbleable(); got != tt.want {
				t.Errorf("Scrobbleable() = %v, want %v", got, tt.want)
			}
		})
	}
}
