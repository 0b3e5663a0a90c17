package mediasession

import (
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/riptide/internal/playlist"
)

const queueSize = 64

// ArtworkFunc lists the cover variants of a track.
type ArtworkFunc func(track playlist.Track) []Artwork

// Adapter forwards session changes to a Surface on a private worker, so
// callers holding locks never wait on the OS side.
//
// An Adapter without a surface accepts every call and does nothing.
type Adapter struct {
	surface    Surface
	artwork    ArtworkFunc
	seekOffset time.Duration
	logger     *slog.Logger

	jobs      chan func()
	done      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithArtwork sets the cover resolver used by Publish.
func WithArtwork(fn ArtworkFunc) Option {
	return func(a *Adapter) { a.artwork = fn }
}

// WithSeekOffset sets the step used by seek actions without an offset.
func WithSeekOffset(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.seekOffset = d
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an adapter for surface, which may be nil.
func New(surface Surface, opts ...Option) *Adapter {
	a := &Adapter{
		surface:    surface,
		seekOffset: DefaultSeekOffset,
		logger:     slog.Default(),
		jobs:       make(chan func(), queueSize),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if surface == nil {
		close(a.finished)
		return a
	}
	go a.run()
	return a
}

// Enabled reports whether an OS surface is attached.
func (a *Adapter) Enabled() bool {
	return a.surface != nil
}

func (a *Adapter) run() {
	defer close(a.finished)
	for {
		select {
		case job := <-a.jobs:
			job()
		case <-a.done:
			// Drain what was queued before Close.
			for {
				select {
				case job := <-a.jobs:
					job()
				default:
					return
				}
			}
		}
	}
}

func (a *Adapter) enqueue(job func()) {
	if a.surface == nil {
		return
	}
	select {
	case <-a.done:
	case a.jobs <- job:
	}
}

// Publish shows track as now playing.
func (a *Adapter) Publish(track playlist.Track) {
	meta := Metadata{
		TrackID: track.ID,
		Title:   track.Title,
		Artist:  track.ArtistLine(),
		Artists: append([]string(nil), track.Artists...),
		Album:   track.Album,
		Length:  track.Duration,
	}
	artwork := a.artwork
	a.enqueue(func() {
		if artwork != nil {
			meta.Artwork = artwork(track)
		}
		a.surface.SetMetadata(meta)
	})
}

// SetStatus mirrors the playback status.
func (a *Adapter) SetStatus(status Status) {
	a.enqueue(func() { a.surface.SetStatus(status) })
}

// BindHandlers routes every action to c, replacing earlier bindings.
func (a *Adapter) BindHandlers(c Controls) {
	handlers := a.handlers(c)
	a.enqueue(func() {
		for _, action := range Actions {
			a.surface.SetHandler(action, handlers[action])
		}
	})
}

// Unbind clears every action handler.
func (a *Adapter) Unbind() {
	a.enqueue(func() {
		for _, action := range Actions {
			a.surface.SetHandler(action, nil)
		}
	})
}

// Close flushes queued work and stops the worker.
func (a *Adapter) Close() {
	a.closeOnce.Do(func() { close(a.done) })
	<-a.finished
}

func (a *Adapter) handlers(c Controls) map[Action]Handler {
	offset := func(d Details) time.Duration {
		if d.SeekOffset > 0 {
			return d.SeekOffset
		}
		return a.seekOffset
	}
	return map[Action]Handler{
		ActionPlay:          func(Details) { c.Play() },
		ActionPause:         func(Details) { c.Pause() },
		ActionNextTrack:     func(Details) { c.PlayNext() },
		ActionPreviousTrack: func(Details) { c.PlayPrevious() },
		ActionSeekBackward:  func(d Details) { c.SeekBy(-offset(d)) },
		ActionSeekForward:   func(d Details) { c.SeekBy(offset(d)) },
		ActionSeekTo: func(d Details) {
			a.logger.Debug("media seek", slog.Duration("position", d.SeekTime))
			c.Seek(d.SeekTime)
		},
	}
}
