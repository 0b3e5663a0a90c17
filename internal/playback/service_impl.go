// internal/playback/service_impl.go
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/riptide/internal/mediasession"
	"github.com/llehouerou/riptide/internal/player"
	"github.com/llehouerou/riptide/internal/playlist"
)

const (
	DefaultDownloadDelay  = 1100 * time.Millisecond
	DefaultStabilizeSteps = 4
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// Verify serviceImpl can drive media keys at compile time.
var _ mediasession.Controls = (*serviceImpl)(nil)

type serviceImpl struct {
	mu sync.Mutex

	sink      player.Sink
	queue     *playlist.PlayingQueue
	resolver  StreamResolver
	telemetry Telemetry
	media     MediaSession
	logger    *slog.Logger
	delay     time.Duration
	steps     int

	state    State
	current  *Track
	position time.Duration
	duration time.Duration
	volume   float64
	shuffle  bool
	repeat   RepeatMode

	// epoch identifies the latest load. Sink events carry it as their tag
	// and every asynchronous continuation compares against it.
	epoch            uint64
	cancelResolve    context.CancelFunc
	stabilizing      bool
	stabilizeTimer   *time.Timer
	telemetryStarted bool

	subs   []*Subscription
	subsMu sync.RWMutex

	wg     sync.WaitGroup
	done   chan struct{}
	closed bool
}

// Option configures the playback service.
type Option func(*serviceImpl)

// WithTelemetry sets the play-history reporter.
func WithTelemetry(t Telemetry) Option {
	return func(s *serviceImpl) {
		if t != nil {
			s.telemetry = t
		}
	}
}

// WithMediaSession sets the OS media-controls mirror.
func WithMediaSession(m MediaSession) Option {
	return func(s *serviceImpl) {
		if m != nil {
			s.media = m
		}
	}
}

// WithDownloadDelay sets the total buffering-stabilization delay.
func WithDownloadDelay(d time.Duration) Option {
	return func(s *serviceImpl) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithStabilizeSteps sets how many position resets precede playback.
func WithStabilizeSteps(n int) Option {
	return func(s *serviceImpl) {
		if n > 0 {
			s.steps = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *serviceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new playback service and takes over the sink's events.
func New(sink player.Sink, q *playlist.PlayingQueue, resolver StreamResolver, opts ...Option) Service {
	s := &serviceImpl{
		sink:      sink,
		queue:     q,
		resolver:  resolver,
		telemetry: noopTelemetry{},
		media:     noopMedia{},
		logger:    slog.Default(),
		delay:     DefaultDownloadDelay,
		steps:     DefaultStabilizeSteps,
		volume:    sink.Volume(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	sink.OnEvent(s.handleSinkEvent)
	s.media.BindHandlers(s)
	return s
}

// PlayTrack makes track current and starts loading it.
func (s *serviceImpl) PlayTrack(track Track, queue []Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.playTrackLocked(track, queue)
}

func (s *serviceImpl) playTrackLocked(track Track, queue []Track) {
	if queue != nil {
		s.queue.SetQueue(queue, track.ID)
	} else {
		s.queue.Locate(track.ID)
	}
	s.emitQueueLocked()
	s.startLocked(track)
}

// startLocked begins a new load of track, invalidating every pending
// continuation of earlier loads.
func (s *serviceImpl) startLocked(track Track) {
	s.epoch++
	epoch := s.epoch
	s.cancelPendingLocked()
	s.telemetry.Stop()
	s.telemetryStarted = false
	s.sink.Stop()

	prev := s.current
	t := track
	s.current = &t
	s.position = 0
	s.duration = 0
	s.setStateLocked(StateLoading)
	s.emitTrackLocked(prev)

	s.logger.Debug("loading track",
		slog.String("track", track.ID),
		slog.String("title", track.Title),
		slog.Uint64("epoch", epoch))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelResolve = cancel
	s.wg.Add(1)
	go s.resolve(ctx, epoch, track)
}

func (s *serviceImpl) resolve(ctx context.Context, epoch uint64, track Track) {
	defer s.wg.Done()

	url, err := s.resolver.ResolveStream(ctx, track.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.epoch {
		return
	}
	if err != nil {
		s.failLocked("resolve", err)
		return
	}
	if err := s.sink.Load(url, epoch); err != nil {
		s.failLocked("load", err)
	}
}

// cancelPendingLocked drops the in-flight resolution and stabilization.
func (s *serviceImpl) cancelPendingLocked() {
	if s.cancelResolve != nil {
		s.cancelResolve()
		s.cancelResolve = nil
	}
	if s.stabilizeTimer != nil {
		s.stabilizeTimer.Stop()
		s.stabilizeTimer = nil
	}
	s.stabilizing = false
}

// failLocked abandons the current load. The track stays selected so it
// can be retried.
func (s *serviceImpl) failLocked(op string, err error) {
	trackID := ""
	if s.current != nil {
		trackID = s.current.ID
	}
	s.logger.Warn("playback failed",
		slog.String("op", op),
		slog.String("track", trackID),
		slog.Any("error", err))

	s.epoch++
	s.cancelPendingLocked()
	s.telemetry.Stop()
	s.telemetryStarted = false
	s.sink.Stop()
	s.position = 0
	s.setStateLocked(StateIdle)
	s.media.SetStatus(mediasession.StatusStopped)
	s.emitErrorLocked(ErrorEvent{Operation: op, TrackID: trackID, Err: err})
}

// finishLocked ends the session once the queue has nothing left to play.
func (s *serviceImpl) finishLocked() {
	s.epoch++
	s.cancelPendingLocked()
	s.telemetry.Stop()
	s.telemetryStarted = false
	s.sink.Stop()

	prev := s.current
	s.current = nil
	s.position = 0
	s.duration = 0
	s.queue.Detach()
	s.setStateLocked(StateIdle)
	s.media.SetStatus(mediasession.StatusStopped)
	s.emitTrackLocked(prev)
	s.emitQueueLocked()
}

func (s *serviceImpl) handleSinkEvent(e player.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || e.Tag != s.epoch || s.current == nil {
		return
	}

	switch e.Kind {
	case player.EventMetadata:
		s.duration = e.Duration
		s.emitPositionLocked()
	case player.EventBuffered:
		if e.Duration > 0 {
			s.duration = e.Duration
		}
		if s.state == StateLoading && !s.stabilizing {
			s.stabilizing = true
			s.stabilizeLocked(s.epoch, 0)
		}
	case player.EventTimeUpdate:
		if s.state != StatePlaying {
			return
		}
		s.position = e.Position
		if e.Duration > 0 {
			s.duration = e.Duration
		}
		s.emitPositionLocked()
	case player.EventEnded:
		s.onEndedLocked()
	case player.EventError:
		s.failLocked("stream", e.Err)
	}
}

func (s *serviceImpl) onEndedLocked() {
	if s.repeat == RepeatOne {
		s.startLocked(*s.current)
		return
	}
	idx, ok := s.queue.NextIndex(s.queue.CurrentIndex(), s.shuffle, s.repeat)
	if !ok {
		s.finishLocked()
		return
	}
	s.jumpLocked(idx)
}

// jumpLocked moves the queue to idx and loads that track.
func (s *serviceImpl) jumpLocked(idx int) {
	track := s.queue.JumpTo(idx)
	if track == nil {
		return
	}
	s.emitQueueLocked()
	s.startLocked(*track)
}

// beginPlaybackLocked is the last step of stabilization.
func (s *serviceImpl) beginPlaybackLocked() {
	track := *s.current
	s.media.Publish(track)

	if err := s.sink.Play(); err != nil {
		s.logger.Warn("playback rejected by audio output",
			slog.String("track", track.ID), slog.Any("error", err))
		s.setStateLocked(StatePaused)
		s.media.SetStatus(mediasession.StatusPaused)
		s.emitErrorLocked(ErrorEvent{Operation: "play", TrackID: track.ID, Err: err})
		return
	}

	s.setStateLocked(StatePlaying)
	s.telemetry.Start(track)
	s.telemetryStarted = true
	s.media.SetStatus(mediasession.StatusPlaying)
}

// TogglePlay switches between playing and paused. An idle session with a
// selected track reloads it.
func (s *serviceImpl) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.current == nil {
		return
	}
	switch s.state {
	case StatePlaying:
		s.pauseLocked()
	case StatePaused:
		s.resumeLocked()
	case StateIdle:
		s.startLocked(*s.current)
	case StateLoading:
		// Playback starts by itself once stabilized.
	}
}

// Play resumes a paused session or reloads an idle one.
func (s *serviceImpl) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.current == nil {
		return
	}
	switch s.state {
	case StatePaused:
		s.resumeLocked()
	case StateIdle:
		s.startLocked(*s.current)
	case StatePlaying, StateLoading:
	}
}

// Pause pauses a playing session.
func (s *serviceImpl) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StatePlaying {
		return
	}
	s.pauseLocked()
}

func (s *serviceImpl) pauseLocked() {
	s.sink.Pause()
	s.position = s.sink.Position()
	s.setStateLocked(StatePaused)
	s.telemetry.Pause()
	s.media.SetStatus(mediasession.StatusPaused)
}

func (s *serviceImpl) resumeLocked() {
	if err := s.sink.Play(); err != nil {
		s.logger.Warn("resume rejected by audio output", slog.Any("error", err))
		s.emitErrorLocked(ErrorEvent{Operation: "play", TrackID: s.current.ID, Err: err})
		return
	}
	s.setStateLocked(StatePlaying)
	if s.telemetryStarted {
		s.telemetry.Resume()
	} else {
		// Output was refused when the track first started.
		s.telemetry.Start(*s.current)
		s.telemetryStarted = true
	}
	s.media.SetStatus(mediasession.StatusPlaying)
}

// PlayNext loads the track the queue picks next, or goes idle.
func (s *serviceImpl) PlayNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	idx, ok := s.queue.NextIndex(s.queue.CurrentIndex(), s.shuffle, s.repeat)
	if !ok {
		if s.current != nil {
			s.finishLocked()
		}
		return
	}
	s.jumpLocked(idx)
}

// PlayPrevious steps back, or restarts the current track once it has
// played past the restart threshold.
func (s *serviceImpl) PlayPrevious() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.current == nil {
		return
	}
	from := s.queue.CurrentIndex()
	if from < 0 {
		s.startLocked(*s.current)
		return
	}
	idx := s.queue.PreviousIndex(from, s.elapsedLocked(), s.repeat)
	if idx == from {
		s.startLocked(*s.current)
		return
	}
	s.jumpLocked(idx)
}

func (s *serviceImpl) elapsedLocked() time.Duration {
	if s.state.IsActive() {
		return s.sink.Position()
	}
	return s.position
}

// Seek moves to an absolute position, clamped to the track.
// Ignored until audio is attached.
func (s *serviceImpl) Seek(position time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekLocked(position)
}

// SeekBy moves relative to the current position.
func (s *serviceImpl) SeekBy(delta time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekLocked(s.elapsedLocked() + delta)
}

func (s *serviceImpl) seekLocked(position time.Duration) {
	if s.closed || s.current == nil || !s.state.IsActive() {
		return
	}
	position = max(position, 0)
	if s.duration > 0 {
		position = min(position, s.duration)
	}
	s.sink.SetPosition(position)
	s.position = position
	s.emitPositionLocked()
}

// SetVolume sets the output level, clamped to [0, 1].
func (s *serviceImpl) SetVolume(level float64) {
	level = player.ClampLevel(level)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sink.SetVolume(level)
	s.volume = level
	s.forEachSub(func(sub *Subscription) { sub.sendVolume(VolumeChange{Volume: level}) })
}

// ToggleShuffle flips shuffle and returns the new value.
func (s *serviceImpl) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = !s.shuffle
	s.emitModeLocked()
	return s.shuffle
}

// ToggleRepeat cycles off, all, one and returns the new mode.
func (s *serviceImpl) ToggleRepeat() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = s.repeat.Next()
	s.emitModeLocked()
	return s.repeat
}

// AddToQueue appends track without affecting playback.
func (s *serviceImpl) AddToQueue(track Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Add(track)
	s.emitQueueLocked()
}

// PlayNextInQueue queues track right after the current one. With nothing
// selected it plays track as a one-item queue.
func (s *serviceImpl) PlayNextInQueue(track Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.current == nil {
		s.playTrackLocked(track, []Track{track})
		return
	}
	s.queue.InsertAfterCurrent(track, *s.current)
	s.emitQueueLocked()
}

// JumpTo loads the queue entry at index.
func (s *serviceImpl) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= s.queue.Len() {
		return ErrInvalidIndex
	}
	if s.closed {
		return nil
	}
	s.jumpLocked(index)
	return nil
}

// RemoveFromQueue drops the entry at index. Removing the current entry
// keeps it playing but detaches it from the queue.
func (s *serviceImpl) RemoveFromQueue(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasCurrent := index == s.queue.CurrentIndex()
	if !s.queue.RemoveAt(index) {
		return ErrInvalidIndex
	}
	if wasCurrent {
		id := ""
		if s.current != nil {
			id = s.current.ID
		}
		s.queue.Locate(id)
	}
	s.emitQueueLocked()
	return nil
}

// ClearQueue empties the queue. The current track keeps playing.
func (s *serviceImpl) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Clear()
	s.emitQueueLocked()
}

// Snapshot returns a copy of the session.
func (s *serviceImpl) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Session{
		State:      s.state,
		Position:   s.position,
		Duration:   s.duration,
		Volume:     s.volume,
		Shuffle:    s.shuffle,
		RepeatMode: s.repeat,
		QueueIndex: s.queue.CurrentIndex(),
		QueueLen:   s.queue.Len(),
	}
	if s.state == StatePlaying {
		snap.Position = s.sink.Position()
	}
	if s.current != nil {
		t := *s.current
		snap.Track = &t
	}
	return snap
}

// Queue returns a copy of all tracks in the queue.
func (s *serviceImpl) Queue() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Tracks()
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	if s.closed {
		sub.close()
		return sub
	}
	s.subs = append(s.subs, sub)
	return sub
}

// Close shuts down the service.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.epoch++
	s.cancelPendingLocked()
	close(s.done)
	s.mu.Unlock()

	s.telemetry.Stop()
	s.media.Unbind()
	s.sink.OnEvent(nil)
	s.sink.Stop()
	s.wg.Wait()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return nil
}

func (s *serviceImpl) setStateLocked(state State) {
	if s.state == state {
		return
	}
	prev := s.state
	s.state = state
	s.logger.Debug("playback state", slog.String("from", prev.String()), slog.String("to", state.String()))
	s.forEachSub(func(sub *Subscription) { sub.sendState(StateChange{Previous: prev, Current: state}) })
}

func (s *serviceImpl) emitTrackLocked(prev *Track) {
	e := TrackChange{Previous: prev, Index: s.queue.CurrentIndex()}
	if s.current != nil {
		t := *s.current
		e.Current = &t
	}
	s.forEachSub(func(sub *Subscription) { sub.sendTrack(e) })
}

func (s *serviceImpl) emitQueueLocked() {
	e := QueueChange{Tracks: s.queue.Tracks(), Index: s.queue.CurrentIndex()}
	s.forEachSub(func(sub *Subscription) { sub.sendQueue(e) })
}

func (s *serviceImpl) emitModeLocked() {
	e := ModeChange{RepeatMode: s.repeat, Shuffle: s.shuffle}
	s.forEachSub(func(sub *Subscription) { sub.sendMode(e) })
}

func (s *serviceImpl) emitPositionLocked() {
	e := PositionChange{Position: s.position, Duration: s.duration}
	s.forEachSub(func(sub *Subscription) { sub.sendPosition(e) })
}

func (s *serviceImpl) emitErrorLocked(e ErrorEvent) {
	s.forEachSub(func(sub *Subscription) { sub.sendError(e) })
}

func (s *serviceImpl) forEachSub(fn func(*Subscription)) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		fn(sub)
	}
}
