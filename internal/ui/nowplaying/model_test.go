package nowplaying

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/llehouerou/riptide/internal/playback"
)

// fakeService records calls and serves a fixed snapshot.
type fakeService struct {
	mu      sync.Mutex
	calls   []string
	session playback.Session
	queue   []playback.Track
	jumpErr error
	sub     *playback.Subscription
}

func (f *fakeService) record(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) PlayTrack(t playback.Track, _ []playback.Track) { f.record("play:" + t.ID) }
func (f *fakeService) TogglePlay()                                    { f.record("toggle") }
func (f *fakeService) Play()                                          { f.record("play") }
func (f *fakeService) Pause()                                         { f.record("pause") }
func (f *fakeService) PlayNext()                                      { f.record("next") }
func (f *fakeService) PlayPrevious()                                  { f.record("previous") }
func (f *fakeService) Seek(time.Duration)                             { f.record("seek") }
func (f *fakeService) SeekBy(d time.Duration)                         { f.record("seekby:" + d.String()) }

func (f *fakeService) SetVolume(level float64) {
	f.record("volume")
	f.mu.Lock()
	f.session.Volume = level
	f.mu.Unlock()
}

func (f *fakeService) AddToQueue(playback.Track)      { f.record("add") }
func (f *fakeService) PlayNextInQueue(playback.Track) { f.record("insert") }
func (f *fakeService) ClearQueue()                    { f.record("clear") }

func (f *fakeService) ToggleShuffle() bool {
	f.record("shuffle")
	return true
}

func (f *fakeService) ToggleRepeat() playback.RepeatMode {
	f.record("repeat")
	return playback.RepeatAll
}

func (f *fakeService) JumpTo(int) error {
	f.record("jump")
	return f.jumpErr
}

func (f *fakeService) RemoveFromQueue(int) error {
	f.record("remove")
	return nil
}

func (f *fakeService) Snapshot() playback.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeService) Queue() []playback.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]playback.Track(nil), f.queue...)
}

func (f *fakeService) Subscribe() *playback.Subscription { return f.sub }
func (f *fakeService) Close() error                      { return nil }

var _ playback.Service = (*fakeService)(nil)

func newFake() *fakeService {
	tracks := []playback.Track{
		{ID: "1", Title: "Roygbiv", Artists: []string{"Boards of Canada"}, Duration: 2*time.Minute + 31*time.Second},
		{ID: "2", Title: "Aquarius", Artists: []string{"Boards of Canada"}, Duration: 5*time.Minute + 58*time.Second},
		{ID: "3", Title: "Olson", Artists: []string{"Boards of Canada"}, Duration: 91 * time.Second},
	}
	cur := tracks[1]
	return &fakeService{
		queue: tracks,
		session: playback.Session{
			Track:      &cur,
			State:      playback.StatePlaying,
			Position:   time.Minute,
			Volume:     0.5,
			QueueIndex: 1,
			QueueLen:   3,
		},
		sub: &playback.Subscription{},
	}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_KeysDriveService(t *testing.T) {
	svc := newFake()
	m := New(svc, "Music Has the Right to Children", 5*time.Second)

	press(m, " ", "n", "p", "right", "left", "s", "r", "c")

	want := []string{"toggle", "next", "previous", "seekby:5s", "seekby:-5s", "shuffle", "repeat", "clear"}
	got := svc.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestModel_VolumeClamps(t *testing.T) {
	svc := newFake()
	svc.session.Volume = 0.98
	m := New(svc, "", 0)

	m = press(m, "+")
	if got := svc.Snapshot().Volume; got != 1 {
		t.Errorf("volume = %v, want 1", got)
	}

	svc.session.Volume = 0.02
	m.refresh()
	press(m, "-")
	if got := svc.Snapshot().Volume; got != 0 {
		t.Errorf("volume = %v, want 0", got)
	}
}

func TestModel_CursorAndJump(t *testing.T) {
	svc := newFake()
	m := New(svc, "", 0)
	if m.cursor != 1 {
		t.Fatalf("cursor starts at %d, want current index 1", m.cursor)
	}

	m = press(m, "j", "j", "j")
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want clamped at 2", m.cursor)
	}
	m = press(m, "k", "k", "k")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}

	svc.jumpErr = errors.New("boom")
	m = press(m, "enter")
	if !strings.Contains(m.err, "Failed to start playback: boom") {
		t.Errorf("err = %q", m.err)
	}
}

func TestModel_ErrorEventNamesTrack(t *testing.T) {
	svc := newFake()
	m := New(svc, "", 0)

	next, _ := m.Update(eventMsg{err: &playback.ErrorEvent{
		Operation: "resolve",
		TrackID:   "3",
		Err:       errors.New("no auth"),
	}})
	m = next.(Model)

	if m.err != "Failed to resolve stream 'Olson': no auth" {
		t.Errorf("err = %q", m.err)
	}

	// A later key press clears it
	m = press(m, "n")
	if m.err != "" {
		t.Errorf("err not cleared: %q", m.err)
	}
}

func TestModel_QuitAndClosed(t *testing.T) {
	m := New(newFake(), "", 0)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}

	_, cmd = m.Update(closedMsg{})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed subscription did not quit")
	}
}

func TestModel_View(t *testing.T) {
	svc := newFake()
	m := New(svc, "Music Has the Right to Children", 0)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	out := ansi.Strip(m.View())
	for _, want := range []string{
		"riptide",
		"Music Has the Right to Children",
		"Aquarius",
		"Queue (2/3)",
		"▸ 2. Aquarius - Boards of Canada",
		"2:31",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestModel_ViewEmptyQueue(t *testing.T) {
	svc := &fakeService{
		session: playback.Session{QueueIndex: -1},
		sub:     &playback.Subscription{},
	}
	m := New(svc, "", 0)

	out := ansi.Strip(m.View())
	if !strings.Contains(out, "Nothing playing") || !strings.Contains(out, "Queue is empty") {
		t.Errorf("view = %s", out)
	}
	if !strings.Contains(out, "Queue (0/0)") {
		t.Errorf("view header wrong: %s", out)
	}
}
