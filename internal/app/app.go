// Package app assembles the player from configuration: backend client,
// audio sink, queue, telemetry, media controls, scrobbling and
// notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/llehouerou/riptide/internal/api"
	"github.com/llehouerou/riptide/internal/artwork"
	"github.com/llehouerou/riptide/internal/config"
	"github.com/llehouerou/riptide/internal/history"
	"github.com/llehouerou/riptide/internal/lastfm"
	"github.com/llehouerou/riptide/internal/mediasession"
	"github.com/llehouerou/riptide/internal/mpris"
	"github.com/llehouerou/riptide/internal/notify"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/player"
	"github.com/llehouerou/riptide/internal/playlist"
	"github.com/llehouerou/riptide/internal/state"
)

// ErrNoServer is returned when no backend is configured.
var ErrNoServer = errors.New("no server configured: set [server] base_url")

// App owns every long-lived component. Close releases them.
type App struct {
	Config   *config.Config
	Client   *api.Client
	Playback playback.Service

	store    state.Store
	logger   *slog.Logger
	sink     player.Sink
	reporter *history.Reporter
	media    *mediasession.Adapter
	surface  *mpris.Surface
	mirror   *lastfm.Mirror
	covers   *artwork.Cache
	notifier notify.Notifier
	notice   *notify.Announcer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type options struct {
	sink     player.Sink
	surface  mediasession.Surface
	notifier notify.Notifier
	covers   *artwork.Cache
	logger   *slog.Logger
}

// Option overrides a component, mostly for tests.
type Option func(*options)

// WithSink replaces the speaker-backed sink.
func WithSink(s player.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithSurface replaces the MPRIS surface.
func WithSurface(s mediasession.Surface) Option {
	return func(o *options) { o.surface = s }
}

// WithNotifier replaces the D-Bus notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithArtworkCache sets the cover cache.
func WithArtworkCache(c *artwork.Cache) Option {
	return func(o *options) { o.covers = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds the player. Optional subsystems (MPRIS, Last.fm,
// notifications, cover cache) that fail to start are logged and skipped.
func New(cfg *config.Config, store state.Store, opts ...Option) (*App, error) {
	if !cfg.HasServerConfig() {
		return nil, ErrNoServer
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	a := &App{Config: cfg, store: store, logger: logger}

	token, err := store.GetAuthToken()
	if err != nil {
		logger.Warn("load saved token", "err", err)
	}
	a.Client = api.New(api.Config{
		BaseURL:  cfg.Server.BaseURL,
		Username: cfg.Server.Username,
		Password: cfg.Server.ResolvePassword(),
	}, api.WithLogger(logger.With("component", "api")), api.WithToken(token))

	pb := cfg.GetPlaybackConfig()
	delay := pb.DownloadDelay
	if saved, ok, err := store.GetDownloadDelay(); err != nil {
		logger.Warn("load download delay", "err", err)
	} else if ok {
		delay = saved
	}

	a.sink = o.sink
	if a.sink == nil {
		a.sink = player.NewStreamSink(player.WithLogger(logger.With("component", "sink")))
	}

	queue := playlist.NewQueue(playlist.WithRestartThreshold(pb.RestartThreshold))

	a.covers = o.covers
	if a.covers == nil {
		if a.covers, err = artwork.New("", artwork.WithLogger(logger)); err != nil {
			logger.Warn("artwork cache disabled", "err", err)
		}
	}

	var hooks history.Hooks
	if a.mirror = a.newMirror(); a.mirror != nil {
		hooks = a.mirror.Hooks()
	}
	a.reporter = history.New(a.Client, a.sink, history.Options{
		Interval:  pb.Heartbeat,
		Threshold: pb.CompletionThreshold,
		Hooks:     hooks,
		Logger:    logger.With("component", "history"),
	})

	surface := o.surface
	if surface == nil {
		surface = a.newSurface()
	}
	a.media = mediasession.New(surface,
		mediasession.WithArtwork(a.Client.CoverArt),
		mediasession.WithSeekOffset(pb.SeekOffset),
		mediasession.WithLogger(logger.With("component", "mediasession")),
	)

	a.Playback = playback.New(a.sink, queue, a.Client,
		playback.WithTelemetry(a.reporter),
		playback.WithMediaSession(a.media),
		playback.WithDownloadDelay(delay),
		playback.WithStabilizeSteps(pb.StabilizeSteps),
		playback.WithLogger(logger.With("component", "playback")),
	)

	volume := pb.Volume
	if saved, ok, err := store.GetVolume(); err == nil && ok {
		volume = saved
	}
	a.Playback.SetVolume(volume)

	if cfg.Notifications.Enabled {
		a.notifier = o.notifier
		if a.notifier == nil {
			if a.notifier, err = notify.New(); err != nil {
				logger.Warn("notifications disabled", "err", err)
			}
		}
		if a.notifier != nil {
			a.notice = notify.NewAnnouncer(a.notifier, a.coverIcon, logger)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	sub := a.Playback.Subscribe()
	a.wg.Go(func() { a.watch(ctx, sub) })

	if a.mirror != nil {
		a.wg.Go(func() {
			if n, err := a.mirror.RetryPending(); err != nil {
				logger.Warn("retry queued scrobbles", "err", err)
			} else if n > 0 {
				logger.Info("submitted queued scrobbles", "count", n)
			}
		})
	}

	return a, nil
}

// newMirror returns nil unless Last.fm is configured and linked.
func (a *App) newMirror() *lastfm.Mirror {
	if !a.Config.HasLastfmConfig() {
		return nil
	}
	sess, err := a.store.GetLastfmSession()
	if err != nil {
		a.logger.Warn("load lastfm session", "err", err)
		return nil
	}
	if sess == nil {
		a.logger.Info("lastfm configured but not linked; run `riptide lastfm link`")
		return nil
	}
	client := lastfm.New(a.Config.Lastfm.APIKey, a.Config.Lastfm.APISecret)
	client.SetSessionKey(sess.SessionKey)
	return lastfm.NewMirror(client, a.store, a.logger.With("component", "lastfm"))
}

// newSurface starts the MPRIS server, or returns nil where there is none.
func (a *App) newSurface() mediasession.Surface {
	opts := []mpris.Option{
		mpris.WithClock(a.sink),
		mpris.WithLogger(a.logger.With("component", "mpris")),
	}
	if a.covers != nil {
		opts = append(opts, mpris.WithArtLocalizer(a.covers.FileURL))
	}
	s, err := mpris.New(opts...)
	if err != nil {
		a.logger.Info("media controls unavailable", "err", err)
		return nil
	}
	a.surface = s
	return s
}

// coverIcon returns the cached cover for a notification icon.
func (a *App) coverIcon(track playlist.Track) string {
	if a.covers == nil {
		return ""
	}
	best, ok := mediasession.Metadata{Artwork: a.Client.CoverArt(track)}.Largest()
	if !ok {
		return ""
	}
	path, err := a.covers.Path(context.Background(), best)
	if err != nil {
		a.logger.Debug("notification icon", "track", track.ID, "err", err)
		return ""
	}
	return path
}

// watch follows the session to announce tracks and remember the volume.
func (a *App) watch(ctx context.Context, sub *playback.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case e := <-sub.TrackChanged:
			if a.notice == nil {
				continue
			}
			if e.Current == nil {
				a.notice.Dismiss()
				continue
			}
			a.notice.Announce(*e.Current)
		case e := <-sub.VolumeChanged:
			if err := a.store.SaveVolume(e.Volume); err != nil {
				a.logger.Warn("save volume", "err", err)
			}
		}
	}
}

// Close stops playback, flushes telemetry and persists the session token.
func (a *App) Close() error {
	var errs []error

	if err := a.Playback.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close playback: %w", err))
	}
	a.cancel()
	a.wg.Wait()

	a.reporter.Close()
	a.media.Close()
	if a.surface != nil {
		if err := a.surface.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.mirror != nil {
		a.mirror.Close()
	}
	if a.notice != nil {
		a.notice.Dismiss()
	}

	if err := a.store.SaveAuthToken(a.Client.Token()); err != nil {
		errs = append(errs, fmt.Errorf("save token: %w", err))
	}
	return errors.Join(errs...)
}
