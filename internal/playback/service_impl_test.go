// internal/playback/service_impl_test.go
package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/llehouerou/riptide/internal/mediasession"
	"github.com/llehouerou/riptide/internal/player"
	"github.com/llehouerou/riptide/internal/playlist"
)

type fakeResolver struct {
	mu   sync.Mutex
	errs map[string]error
}

func (r *fakeResolver) ResolveStream(_ context.Context, trackID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[trackID]; err != nil {
		return "", err
	}
	return "mem://" + trackID, nil
}

type fakeTelemetry struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeTelemetry) record(c string) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeTelemetry) Start(t Track) { f.record("start:" + t.ID) }
func (f *fakeTelemetry) Pause()        { f.record("pause") }
func (f *fakeTelemetry) Resume()       { f.record("resume") }
func (f *fakeTelemetry) Stop()         { f.record("stop") }

// Significant returns calls other than stop.
func (f *fakeTelemetry) Significant() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "stop" {
			out = append(out, c)
		}
	}
	return out
}

type fakeMedia struct {
	mu        sync.Mutex
	published []string
	statuses  []mediasession.Status
	bound     mediasession.Controls
	unbinds   int
}

func (f *fakeMedia) Publish(t Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, t.ID)
}

func (f *fakeMedia) SetStatus(s mediasession.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, s)
}

func (f *fakeMedia) BindHandlers(c mediasession.Controls) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound = c
}

func (f *fakeMedia) Unbind() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound = nil
	f.unbinds++
}

func (f *fakeMedia) lastStatus() mediasession.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return -1
	}
	return f.statuses[len(f.statuses)-1]
}

type harness struct {
	svc      Service
	sink     *player.Mock
	resolver *fakeResolver
	tel      *fakeTelemetry
	media    *fakeMedia
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		sink:     player.NewMock(),
		resolver: &fakeResolver{errs: map[string]error{}},
		tel:      &fakeTelemetry{},
		media:    &fakeMedia{},
	}
	opts = append([]Option{WithTelemetry(h.tel), WithMediaSession(h.media)}, opts...)
	h.svc = New(h.sink, playlist.NewQueue(), h.resolver, opts...)
	return h
}

// play calls PlayTrack and waits for the resolved URL to reach the sink.
func (h *harness) play(track Track, queue []Track) uint64 {
	h.svc.PlayTrack(track, queue)
	synctest.Wait()
	return h.sink.LastTag()
}

// buffer reports the latest load as fully buffered and lets stabilization run.
func (h *harness) buffer(d time.Duration) {
	tag := h.sink.LastTag()
	h.sink.Emit(player.Event{Kind: player.EventMetadata, Tag: tag, Duration: d})
	h.sink.Emit(player.Event{Kind: player.EventBuffered, Tag: tag, Duration: d})
	time.Sleep(DefaultDownloadDelay)
	synctest.Wait()
}

func (h *harness) end() {
	h.sink.Emit(player.Event{Kind: player.EventEnded, Tag: h.sink.LastTag()})
	synctest.Wait()
}

func tr(id string, d time.Duration) Track {
	return Track{ID: id, Title: "Title " + id, Artists: []string{"Artist"}, Duration: d}
}

func TestService_InitialSnapshot(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()

		snap := h.svc.Snapshot()
		if snap.State != StateIdle || snap.Track != nil || snap.QueueIndex != -1 {
			t.Errorf("Snapshot() = %+v, want idle empty session", snap)
		}
		if snap.Volume != 1 {
			t.Errorf("Volume = %v, want 1", snap.Volume)
		}
		if h.media.bound == nil {
			t.Error("New() should bind media handlers")
		}
	})
}

func TestService_PlayTrack_StabilizesThenPlays(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		a := tr("a", 3*time.Minute)

		tag := h.play(a, []Track{a, tr("b", time.Minute)})

		if got := h.sink.Loads(); len(got) != 1 || got[0].URL != "mem://a" {
			t.Fatalf("Loads() = %v, want one load of mem://a", got)
		}
		if s := h.svc.Snapshot(); s.State != StateLoading || s.Track.ID != "a" || s.QueueIndex != 0 {
			t.Fatalf("Snapshot() = %+v, want Loading a at 0", s)
		}

		h.sink.Emit(player.Event{Kind: player.EventBuffered, Tag: tag, Duration: 3 * time.Minute})
		synctest.Wait()
		if len(h.sink.SeekCalls()) != 1 {
			t.Errorf("seeks right after buffering = %d, want 1", len(h.sink.SeekCalls()))
		}

		time.Sleep(DefaultDownloadDelay - time.Millisecond)
		synctest.Wait()
		if h.sink.PlayCalls() != 0 {
			t.Fatal("Play() called before the download delay elapsed")
		}
		if len(h.sink.SeekCalls()) != DefaultStabilizeSteps {
			t.Errorf("seeks before final step = %d, want %d", len(h.sink.SeekCalls()), DefaultStabilizeSteps)
		}

		time.Sleep(time.Millisecond)
		synctest.Wait()

		if h.sink.PlayCalls() != 1 {
			t.Fatalf("PlayCalls() = %d, want 1", h.sink.PlayCalls())
		}
		seeks := h.sink.SeekCalls()
		if len(seeks) != DefaultStabilizeSteps+1 {
			t.Errorf("seeks = %d, want %d", len(seeks), DefaultStabilizeSteps+1)
		}
		for i, d := range seeks {
			if d != 0 {
				t.Errorf("seek %d = %v, want 0", i, d)
			}
		}
		if s := h.svc.Snapshot(); s.State != StatePlaying || s.Duration != 3*time.Minute {
			t.Errorf("Snapshot() = %+v, want Playing with 3m duration", s)
		}
		if got := h.tel.Significant(); len(got) != 1 || got[0] != "start:a" {
			t.Errorf("telemetry = %v, want [start:a]", got)
		}
		if h.media.lastStatus() != mediasession.StatusPlaying || len(h.media.published) != 1 {
			t.Errorf("media = %v / %v, want published and playing", h.media.published, h.media.statuses)
		}
	})
}

func TestService_CustomStabilization(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(WithDownloadDelay(200*time.Millisecond), WithStabilizeSteps(2))
		defer h.svc.Close()

		tag := h.play(tr("a", time.Minute), nil)
		h.sink.Emit(player.Event{Kind: player.EventBuffered, Tag: tag, Duration: time.Minute})
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		if h.sink.PlayCalls() != 1 || len(h.sink.SeekCalls()) != 3 {
			t.Errorf("plays %d seeks %d, want 1 and 3", h.sink.PlayCalls(), len(h.sink.SeekCalls()))
		}
	})
}

func TestService_StaleEventsIgnored(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		a, b := tr("a", time.Minute), tr("b", time.Minute)

		oldTag := h.play(a, []Track{a, b})
		newTag := h.play(b, nil)
		if oldTag == newTag {
			t.Fatal("each load needs a fresh tag")
		}

		h.sink.Emit(player.Event{Kind: player.EventBuffered, Tag: oldTag, Duration: time.Minute})
		h.sink.Emit(player.Event{Kind: player.EventEnded, Tag: oldTag})
		h.sink.Emit(player.Event{Kind: player.EventError, Tag: oldTag, Err: errors.New("old")})
		time.Sleep(2 * DefaultDownloadDelay)
		synctest.Wait()

		if h.sink.PlayCalls() != 0 || len(h.sink.SeekCalls()) != 0 {
			t.Errorf("stale events acted on: plays %d seeks %d", h.sink.PlayCalls(), len(h.sink.SeekCalls()))
		}
		if s := h.svc.Snapshot(); s.State != StateLoading || s.Track.ID != "b" {
			t.Errorf("Snapshot() = %+v, want Loading b", s)
		}
	})
}

func TestService_NewTrackCancelsPendingStabilization(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		a, b := tr("a", time.Minute), tr("b", time.Minute)

		tag := h.play(a, []Track{a, b})
		h.sink.Emit(player.Event{Kind: player.EventBuffered, Tag: tag, Duration: time.Minute})
		time.Sleep(DefaultDownloadDelay / 2)
		h.play(b, nil)
		time.Sleep(2 * DefaultDownloadDelay)
		synctest.Wait()

		if h.sink.PlayCalls() != 0 {
			t.Errorf("PlayCalls() = %d, want 0", h.sink.PlayCalls())
		}
		if got := h.tel.Significant(); len(got) != 0 {
			t.Errorf("telemetry = %v, want none", got)
		}
	})
}

func TestService_PlayRejected_PausesWithoutTelemetry(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		sub := h.svc.Subscribe()

		h.sink.SetPlayError(errors.New("device busy"))
		h.play(tr("a", time.Minute), nil)
		h.buffer(time.Minute)

		if s := h.svc.Snapshot(); s.State != StatePaused {
			t.Fatalf("State = %v, want Paused", s.State)
		}
		if got := h.tel.Significant(); len(got) != 0 {
			t.Errorf("telemetry = %v, want none", got)
		}
		select {
		case e := <-sub.Error:
			if e.Operation != "play" {
				t.Errorf("ErrorEvent.Operation = %q, want play", e.Operation)
			}
		default:
			t.Error("expected an error event")
		}

		h.sink.SetPlayError(nil)
		h.svc.TogglePlay()
		if s := h.svc.Snapshot(); s.State != StatePlaying {
			t.Errorf("State after toggle = %v, want Playing", s.State)
		}
		if got := h.tel.Significant(); len(got) != 1 || got[0] != "start:a" {
			t.Errorf("telemetry = %v, want [start:a]", got)
		}
	})
}

func TestService_TogglePlay(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()

		h.svc.TogglePlay()
		if s := h.svc.Snapshot(); s.State != StateIdle {
			t.Fatalf("toggle without track: State = %v, want Idle", s.State)
		}

		h.play(tr("a", time.Minute), nil)
		h.svc.TogglePlay()
		if s := h.svc.Snapshot(); s.State != StateLoading {
			t.Fatalf("toggle while loading: State = %v, want Loading", s.State)
		}

		h.buffer(time.Minute)
		h.svc.TogglePlay()
		if s := h.svc.Snapshot(); s.State != StatePaused {
			t.Fatalf("State = %v, want Paused", s.State)
		}
		if h.sink.PauseCalls() != 1 {
			t.Errorf("PauseCalls() = %d, want 1", h.sink.PauseCalls())
		}
		h.svc.TogglePlay()
		if s := h.svc.Snapshot(); s.State != StatePlaying {
			t.Fatalf("State = %v, want Playing", s.State)
		}

		want := []string{"start:a", "pause", "resume"}
		got := h.tel.Significant()
		if len(got) != len(want) {
			t.Fatalf("telemetry = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("telemetry[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

func TestService_PlayPauseAreOneWay(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		h.play(tr("a", time.Minute), nil)
		h.buffer(time.Minute)

		h.svc.Play()
		if h.svc.Snapshot().State != StatePlaying {
			t.Fatal("Play() while playing should keep playing")
		}
		h.svc.Pause()
		h.svc.Pause()
		if h.svc.Snapshot().State != StatePaused || h.sink.PauseCalls() != 1 {
			t.Errorf("Pause twice: state %v pauses %d", h.svc.Snapshot().State, h.sink.PauseCalls())
		}
		h.svc.Play()
		if h.svc.Snapshot().State != StatePlaying {
			t.Error("Play() should resume")
		}
	})
}

func TestService_TwoTrackScenario(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		t1, t2 := tr("t1", 180*time.Second), tr("t2", 200*time.Second)

		h.play(t1, []Track{t1, t2})
		h.buffer(180 * time.Second)
		h.sink.SetClock(175*time.Second, 180*time.Second)

		h.svc.PlayNext()
		synctest.Wait()
		s := h.svc.Snapshot()
		if s.Track == nil || s.Track.ID != "t2" || s.Position != 0 || s.QueueIndex != 1 {
			t.Fatalf("after PlayNext: %+v, want t2 at 0", s)
		}

		h.buffer(200 * time.Second)
		h.end()

		s = h.svc.Snapshot()
		if s.State != StateIdle || s.Track != nil || s.QueueIndex != -1 {
			t.Errorf("after end: %+v, want Idle with no track", s)
		}
		if h.media.lastStatus() != mediasession.StatusStopped {
			t.Errorf("media status = %v, want Stopped", h.media.lastStatus())
		}
	})
}

func TestService_NaturalEnd(t *testing.T) {
	tests := []struct {
		name     string
		repeat   int // ToggleRepeat presses
		wantLoad string
	}{
		{"repeat off advances", 0, "mem://b"},
		{"repeat one replays", 2, "mem://a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				h := newHarness()
				defer h.svc.Close()
				for range tt.repeat {
					h.svc.ToggleRepeat()
				}
				a, b := tr("a", time.Minute), tr("b", time.Minute)
				h.play(a, []Track{a, b})
				h.buffer(time.Minute)

				h.end()

				loads := h.sink.Loads()
				if len(loads) != 2 || loads[1].URL != tt.wantLoad {
					t.Errorf("Loads() = %v, want second load %s", loads, tt.wantLoad)
				}
				if s := h.svc.Snapshot(); s.State != StateLoading {
					t.Errorf("State = %v, want Loading", s.State)
				}
			})
		})
	}
}

func TestService_RepeatAllWraps(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		h.svc.ToggleRepeat()
		a, b := tr("a", time.Minute), tr("b", time.Minute)
		h.play(b, []Track{a, b})
		h.buffer(time.Minute)

		h.end()

		if s := h.svc.Snapshot(); s.Track.ID != "a" || s.QueueIndex != 0 {
			t.Errorf("after end: %+v, want a at 0", s)
		}
	})
}

func TestService_PlayNext_RepeatOneStopsAtEnd(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		h.svc.ToggleRepeat()
		h.svc.ToggleRepeat()
		a := tr("a", time.Minute)
		h.play(a, []Track{a})
		h.buffer(time.Minute)

		h.svc.PlayNext()

		if s := h.svc.Snapshot(); s.State != StateIdle || s.Track != nil {
			t.Errorf("PlayNext at end with repeat one: %+v, want Idle", s)
		}
	})
}

func TestService_PlayPrevious(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		wantLoad string
	}{
		{"restart past threshold", 5 * time.Second, "mem://b"},
		{"step back early", time.Second, "mem://a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				h := newHarness()
				defer h.svc.Close()
				a, b := tr("a", time.Minute), tr("b", time.Minute)
				h.play(b, []Track{a, b})
				h.buffer(time.Minute)
				h.sink.SetClock(tt.elapsed, time.Minute)

				h.svc.PlayPrevious()
				synctest.Wait()

				loads := h.sink.Loads()
				if got := loads[len(loads)-1].URL; got != tt.wantLoad {
					t.Errorf("last load = %s, want %s", got, tt.wantLoad)
				}
			})
		})
	}
}

func TestService_PlayPrevious_HeadWithRepeatAll(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		h.svc.ToggleRepeat()
		q := []Track{tr("a", time.Minute), tr("b", time.Minute), tr("c", time.Minute)}
		h.play(q[0], q)
		h.buffer(time.Minute)
		h.sink.SetClock(time.Second, time.Minute)

		h.svc.PlayPrevious()

		if s := h.svc.Snapshot(); s.Track.ID != "c" || s.QueueIndex != 2 {
			t.Errorf("Snapshot() = %+v, want c at 2", s)
		}
	})
}

func TestService_Seek(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		sub := h.svc.Subscribe()

		h.play(tr("a", time.Minute), nil)
		h.svc.Seek(10 * time.Second)
		if len(h.sink.SeekCalls()) != 0 {
			t.Fatal("Seek() while loading should be ignored")
		}

		h.buffer(time.Minute)
		base := len(h.sink.SeekCalls())
		drainPositions(sub)

		h.svc.Seek(90 * time.Second)
		h.svc.Seek(-5 * time.Second)
		h.sink.SetClock(20*time.Second, time.Minute)
		h.svc.SeekBy(10 * time.Second)

		seeks := h.sink.SeekCalls()[base:]
		want := []time.Duration{time.Minute, 0, 30 * time.Second}
		if len(seeks) != len(want) {
			t.Fatalf("seeks = %v, want %v", seeks, want)
		}
		for i := range want {
			if seeks[i] != want[i] {
				t.Errorf("seek %d = %v, want %v", i, seeks[i], want[i])
			}
		}
		select {
		case e := <-sub.PositionChanged:
			if e.Position != time.Minute {
				t.Errorf("PositionChange = %v, want 1m", e.Position)
			}
		default:
			t.Error("Seek() should emit a position change")
		}
	})
}

func drainPositions(sub *Subscription) {
	for {
		select {
		case <-sub.PositionChanged:
		default:
			return
		}
	}
}

func TestService_ResolveFailureGoesIdle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		h.resolver.errs["a"] = errors.New("no auth")

		h.play(tr("a", time.Minute), nil)

		if s := h.svc.Snapshot(); s.State != StateIdle || s.Track == nil {
			t.Errorf("Snapshot() = %+v, want Idle with a selected", s)
		}
		if len(h.sink.Loads()) != 0 {
			t.Error("nothing should be loaded")
		}

		delete(h.resolver.errs, "a")
		h.svc.TogglePlay()
		synctest.Wait()
		if len(h.sink.Loads()) != 1 {
			t.Error("TogglePlay() on an idle track should reload it")
		}
	})
}

func TestService_SinkErrorGoesIdle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		h.play(tr("a", time.Minute), nil)
		h.buffer(time.Minute)

		h.sink.Emit(player.Event{Kind: player.EventError, Tag: h.sink.LastTag(), Err: errors.New("decode")})

		if s := h.svc.Snapshot(); s.State != StateIdle {
			t.Errorf("State = %v, want Idle", s.State)
		}
	})
}

func TestService_TimeUpdatesOnlyWhilePlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		tag := h.play(tr("a", time.Minute), nil)

		h.sink.Emit(player.Event{Kind: player.EventTimeUpdate, Tag: tag, Position: 7 * time.Second})
		if s := h.svc.Snapshot(); s.Position != 0 {
			t.Errorf("position while loading = %v, want 0", s.Position)
		}

		h.buffer(time.Minute)
		h.svc.Pause()
		h.sink.Emit(player.Event{Kind: player.EventTimeUpdate, Tag: tag, Position: 9 * time.Second})
		if s := h.svc.Snapshot(); s.Position == 9*time.Second {
			t.Error("time update applied while paused")
		}
	})
}

func TestService_PlayNextInQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		d := tr("D", time.Minute)

		h.svc.PlayNextInQueue(d)
		synctest.Wait()
		if s := h.svc.Snapshot(); s.Track == nil || s.Track.ID != "D" || s.QueueLen != 1 {
			t.Fatalf("with no current track: %+v, want D as a one-item queue", s)
		}

		a, b, c := tr("A", time.Minute), tr("B", time.Minute), tr("C", time.Minute)
		h.play(b, []Track{a, b, c})
		h.svc.PlayNextInQueue(d)

		got := h.svc.Queue()
		want := []string{"A", "B", "D", "C"}
		for i := range want {
			if got[i].ID != want[i] {
				t.Errorf("Queue()[%d] = %s, want %s", i, got[i].ID, want[i])
			}
		}
	})
}

func TestService_QueueEditing(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		a, b, c := tr("a", time.Minute), tr("b", time.Minute), tr("c", time.Minute)
		h.play(b, []Track{a, b})

		h.svc.AddToQueue(c)
		if s := h.svc.Snapshot(); s.QueueLen != 3 || s.QueueIndex != 1 {
			t.Errorf("after AddToQueue: %+v", s)
		}

		if err := h.svc.RemoveFromQueue(1); err != nil {
			t.Fatalf("RemoveFromQueue() error = %v", err)
		}
		if s := h.svc.Snapshot(); s.QueueIndex != -1 || s.Track.ID != "b" {
			t.Errorf("after removing current: %+v, want index -1, b still current", s)
		}
		if err := h.svc.RemoveFromQueue(5); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("RemoveFromQueue(5) error = %v, want ErrInvalidIndex", err)
		}

		if err := h.svc.JumpTo(1); err != nil {
			t.Fatalf("JumpTo() error = %v", err)
		}
		synctest.Wait()
		if s := h.svc.Snapshot(); s.Track.ID != "c" {
			t.Errorf("after JumpTo(1): track %s, want c", s.Track.ID)
		}
		if err := h.svc.JumpTo(-1); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("JumpTo(-1) error = %v, want ErrInvalidIndex", err)
		}

		h.svc.ClearQueue()
		if s := h.svc.Snapshot(); s.QueueLen != 0 || s.Track.ID != "c" {
			t.Errorf("after ClearQueue: %+v", s)
		}
	})
}

func TestService_Modes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()
		sub := h.svc.Subscribe()

		if !h.svc.ToggleShuffle() {
			t.Error("ToggleShuffle() = false, want true")
		}
		wantModes := []RepeatMode{RepeatAll, RepeatOne, RepeatOff}
		for _, w := range wantModes {
			if got := h.svc.ToggleRepeat(); got != w {
				t.Errorf("ToggleRepeat() = %v, want %v", got, w)
			}
		}
		if e := <-sub.ModeChanged; !e.Shuffle {
			t.Error("ModeChange.Shuffle = false, want true")
		}
	})
}

func TestService_SetVolume(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		defer h.svc.Close()

		h.svc.SetVolume(1.5)
		if h.sink.Volume() != 1 || h.svc.Snapshot().Volume != 1 {
			t.Errorf("volume = %v, want clamped to 1", h.sink.Volume())
		}
		h.svc.SetVolume(0.25)
		if h.svc.Snapshot().Volume != 0.25 {
			t.Errorf("Volume = %v, want 0.25", h.svc.Snapshot().Volume)
		}
	})
}

func TestService_Close(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness()
		sub := h.svc.Subscribe()
		h.play(tr("a", time.Minute), nil)

		if err := h.svc.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := h.svc.Close(); err != nil {
			t.Fatalf("second Close() error = %v", err)
		}
		<-sub.Done
		if h.media.unbinds != 1 {
			t.Errorf("Unbind calls = %d, want 1", h.media.unbinds)
		}

		h.svc.PlayTrack(tr("b", time.Minute), nil)
		synctest.Wait()
		if len(h.sink.Loads()) != 1 {
			t.Error("PlayTrack after Close should do nothing")
		}
		late := h.svc.Subscribe()
		<-late.Done
	})
}
