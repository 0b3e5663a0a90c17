//go:build linux

// Package mpris exposes the media session on D-Bus as an MPRIS player.
package mpris

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/riptide/internal/mediasession"
	"github.com/llehouerou/riptide/internal/player"
)

const busName = "riptide"

// emitter sends PropertiesChanged for groups of player properties.
type emitter interface {
	OnTitle() error
	OnPlayback() error
	OnPlayPause() error
}

// Surface is a mediasession.Surface backed by an MPRIS server.
type Surface struct {
	server *server.Server
	events emitter
	clock  player.Clock
	art    ArtLocalizer
	logger *slog.Logger

	mu       sync.RWMutex
	meta     mediasession.Metadata
	status   mediasession.Status
	handlers map[mediasession.Action]mediasession.Handler
}

var _ mediasession.Surface = (*Surface)(nil)

// Option configures a Surface.
type Option func(*Surface)

// WithClock sets where the reported position comes from.
func WithClock(c player.Clock) Option {
	return func(s *Surface) { s.clock = c }
}

// WithArtLocalizer maps remote artwork to a URL desktop shells can load.
func WithArtLocalizer(fn ArtLocalizer) Option {
	return func(s *Surface) { s.art = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Surface) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates the surface and starts serving it on the session bus.
func New(opts ...Option) (*Surface, error) {
	s := newSurface(opts...)
	s.server = server.NewServer(busName, &rootAdapter{}, &playerAdapter{s: s})
	s.events = events.NewEventHandler(s.server).Player

	go func() {
		if err := s.server.Listen(); err != nil {
			s.logger.Warn("mpris listen failed", "err", err)
		}
	}()

	return s, nil
}

func newSurface(opts ...Option) *Surface {
	s := &Surface{
		logger:   slog.Default(),
		handlers: make(map[mediasession.Action]mediasession.Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops the server and releases D-Bus resources.
func (s *Surface) Close() error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Stop(); err != nil {
		return fmt.Errorf("stop mpris: %w", err)
	}
	return nil
}

// SetMetadata replaces the now-playing metadata.
func (s *Surface) SetMetadata(meta mediasession.Metadata) {
	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()

	s.emit("metadata", func(e emitter) error { return e.OnTitle() })
}

// SetStatus replaces the playback status. Leaving the stopped state
// republishes the whole player, other transitions only the status.
func (s *Surface) SetStatus(status mediasession.Status) {
	s.mu.Lock()
	prev := s.status
	s.status = status
	s.mu.Unlock()

	switch {
	case prev == status:
	case prev == mediasession.StatusStopped:
		s.emit("playback", func(e emitter) error { return e.OnPlayback() })
	default:
		s.emit("status", func(e emitter) error { return e.OnPlayPause() })
	}
}

// emit runs outside the lock: the emitter reads back through the adapter.
func (s *Surface) emit(what string, fn func(emitter) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		s.logger.Debug("mpris change signal failed", "what", what, "err", err)
	}
}

// SetHandler installs or clears the handler for an action.
func (s *Surface) SetHandler(action mediasession.Action, h mediasession.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		delete(s.handlers, action)
		return
	}
	s.handlers[action] = h
}

// fire runs the handler for action outside the lock.
func (s *Surface) fire(d mediasession.Details) bool {
	s.mu.RLock()
	h := s.handlers[d.Action]
	s.mu.RUnlock()
	if h == nil {
		return false
	}
	h(d)
	return true
}

func (s *Surface) has(action mediasession.Action) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[action] != nil
}

func (s *Surface) snapshot() (mediasession.Metadata, mediasession.Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, s.status
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // The app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Riptide", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
type playerAdapter struct {
	s *Surface
}

func (p *playerAdapter) action(a mediasession.Action) error {
	p.s.fire(mediasession.Details{Action: a})
	return nil
}

func (p *playerAdapter) Next() error {
	return p.action(mediasession.ActionNextTrack)
}

func (p *playerAdapter) Previous() error {
	return p.action(mediasession.ActionPreviousTrack)
}

func (p *playerAdapter) Pause() error {
	return p.action(mediasession.ActionPause)
}

func (p *playerAdapter) PlayPause() error {
	if _, status := p.s.snapshot(); status == mediasession.StatusPlaying {
		return p.action(mediasession.ActionPause)
	}
	return p.action(mediasession.ActionPlay)
}

// Stop pauses; the session has no stopped state a client can request.
func (p *playerAdapter) Stop() error {
	return p.action(mediasession.ActionPause)
}

func (p *playerAdapter) Play() error {
	return p.action(mediasession.ActionPlay)
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	d := time.Duration(offset) * time.Microsecond
	switch {
	case d > 0:
		p.s.fire(mediasession.Details{Action: mediasession.ActionSeekForward, SeekOffset: d})
	case d < 0:
		p.s.fire(mediasession.Details{Action: mediasession.ActionSeekBackward, SeekOffset: -d})
	}
	return nil
}

func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	meta, _ := p.s.snapshot()
	if trackID != formatTrackID(meta.TrackID) {
		return nil // Stale request for a previous track
	}
	p.s.fire(mediasession.Details{
		Action:   mediasession.ActionSeekTo,
		SeekTime: time.Duration(position) * time.Microsecond,
	})
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	_, status := p.s.snapshot()
	switch status {
	case mediasession.StatusPlaying:
		return types.PlaybackStatusPlaying, nil
	case mediasession.StatusPaused:
		return types.PlaybackStatusPaused, nil
	case mediasession.StatusStopped:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	meta, _ := p.s.snapshot()
	if meta.TrackID == "" {
		return types.Metadata{}, nil
	}

	artists := meta.Artists
	if len(artists) == 0 && meta.Artist != "" {
		artists = []string{meta.Artist}
	}
	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(meta.TrackID)),
		Length:  types.Microseconds(meta.Length.Microseconds()),
		Title:   meta.Title,
		Artist:  artists,
		Album:   meta.Album,
		ArtUrl:  artURL(meta, p.s.art),
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil // Volume is not part of the media session
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	if p.s.clock == nil {
		return 0, nil
	}
	return p.s.clock.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.s.has(mediasession.ActionNextTrack), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.s.has(mediasession.ActionPreviousTrack), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.s.has(mediasession.ActionPlay), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.s.has(mediasession.ActionPause), nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.s.has(mediasession.ActionSeekTo), nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
