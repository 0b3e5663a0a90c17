// Package history reports listening progress to the library backend.
//
// One Reporter follows the shared playback session. Each played track gets
// a remote play record, refreshed by a heartbeat while audio plays, and
// flagged completed exactly once when enough of it has been heard.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/riptide/internal/player"
	"github.com/llehouerou/riptide/internal/playlist"
)

const (
	DefaultInterval  = 15 * time.Second
	DefaultThreshold = 0.8
	defaultTimeout   = 10 * time.Second
)

// Service creates and updates play records.
type Service interface {
	StartPlay(ctx context.Context, trackID string) (string, error)
	UpdatePlay(ctx context.Context, playID string, seconds int, completed bool) error
}

// Hooks are notified about record milestones. Either may be nil.
type Hooks struct {
	OnStarted   func(playlist.Track)
	OnCompleted func(playlist.Track)
}

// Options tunes a Reporter. Zero values select the defaults.
type Options struct {
	Interval  time.Duration
	Threshold float64
	Timeout   time.Duration
	Hooks     Hooks
	Logger    *slog.Logger
}

// Reporter sends play telemetry for at most one session at a time.
type Reporter struct {
	mu      sync.Mutex
	service Service
	clock   player.Clock
	opts    Options
	session *session
	wg      sync.WaitGroup
}

// session is the identity ticks and start callbacks check against.
type session struct {
	track     playlist.Track
	playID    string // empty until the record exists
	completed  bool // the backend accepted the completed update
	completing bool // a completed update is in flight
	paused     bool
	timer      *time.Timer
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates a reporter reading progress from clock.
func New(service Service, clock player.Clock, opts Options) *Reporter {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reporter{service: service, clock: clock, opts: opts}
}

// Start ends any running session and opens a record for track.
// The record is created in the background; the heartbeat starts once it exists.
func (r *Reporter) Start(track playlist.Track) {
	r.mu.Lock()
	r.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{track: track, ctx: ctx, cancel: cancel}
	r.session = s
	r.mu.Unlock()

	r.wg.Go(func() { r.begin(s) })
}

func (r *Reporter) begin(s *session) {
	ctx, cancel := context.WithTimeout(s.ctx, r.opts.Timeout)
	defer cancel()

	id, err := r.service.StartPlay(ctx, s.track.ID)
	if err != nil {
		if s.ctx.Err() == nil {
			r.opts.Logger.Warn("start play record failed",
				slog.String("track", s.track.ID), slog.Any("error", err))
		}
		return
	}

	r.mu.Lock()
	if r.session != s {
		r.mu.Unlock()
		return
	}
	s.playID = id
	if !s.paused {
		r.armLocked(s)
	}
	r.mu.Unlock()

	r.opts.Logger.Debug("play record started",
		slog.String("track", s.track.ID), slog.String("play", id))
	if r.opts.Hooks.OnStarted != nil {
		r.opts.Hooks.OnStarted(s.track)
	}
}

// Pause disarms the heartbeat, keeping the record.
func (r *Reporter) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil || s.paused {
		return
	}
	s.paused = true
	r.disarmLocked(s)
}

// Resume re-arms the heartbeat of the current record.
func (r *Reporter) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil || !s.paused {
		return
	}
	s.paused = false
	if s.playID != "" {
		r.armLocked(s)
	}
}

// Stop ends the current session. Safe to call when idle.
func (r *Reporter) Stop() {
	r.mu.Lock()
	r.stopLocked()
	r.mu.Unlock()
}

// Close stops reporting and waits for in-flight requests.
func (r *Reporter) Close() {
	r.Stop()
	r.wg.Wait()
}

// Active reports the track of the running session.
func (r *Reporter) Active() (playlist.Track, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return playlist.Track{}, false
	}
	return r.session.track, true
}

func (r *Reporter) stopLocked() {
	if r.session == nil {
		return
	}
	r.disarmLocked(r.session)
	r.session.cancel()
	r.session = nil
}

// armLocked schedules the next tick. Pending ticks count in wg so Close
// waits for them.
func (r *Reporter) armLocked(s *session) {
	r.disarmLocked(s)
	r.wg.Add(1)
	s.timer = time.AfterFunc(r.opts.Interval, func() {
		defer r.wg.Done()
		r.tick(s)
	})
}

func (r *Reporter) disarmLocked(s *session) {
	if s.timer == nil {
		return
	}
	if s.timer.Stop() {
		r.wg.Done()
	}
	s.timer = nil
}

func (r *Reporter) tick(s *session) {
	// Read the clock before locking: the clock may belong to a component
	// that calls into the reporter while holding its own lock.
	pos, dur := r.clock.Position(), r.clock.Duration()

	r.mu.Lock()
	if r.session != s || s.paused || s.playID == "" {
		r.mu.Unlock()
		return
	}
	// A failed completed update is claimed again on the next tick; the
	// backend credits a play only once.
	completed := !s.completed && !s.completing &&
		dur > 0 && float64(pos)/float64(dur) >= r.opts.Threshold
	if completed {
		s.completing = true
	}
	playID := s.playID
	r.armLocked(s)
	r.mu.Unlock()

	ok := r.send(playID, int(pos/time.Second), completed)
	if !completed {
		return
	}

	r.mu.Lock()
	s.completing = false
	s.completed = s.completed || ok
	r.mu.Unlock()

	if ok && r.opts.Hooks.OnCompleted != nil {
		r.opts.Hooks.OnCompleted(s.track)
	}
}

// send pushes one update and reports whether the backend took it.
func (r *Reporter) send(playID string, seconds int, completed bool) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()

	if err := r.service.UpdatePlay(ctx, playID, seconds, completed); err != nil {
		r.opts.Logger.Warn("play record update failed",
			slog.String("play", playID),
			slog.Int("seconds", seconds),
			slog.Bool("completed", completed),
			slog.Any("error", err))
		return false
	}
	return true
}
