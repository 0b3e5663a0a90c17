package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// ErrNoSource is returned by Play when nothing has been buffered yet.
var ErrNoSource = errors.New("no source loaded")

const (
	defaultSampleRate   = beep.SampleRate(44100)
	defaultTickInterval = 250 * time.Millisecond
	resampleQuality     = 4
)

var (
	speakerMu          sync.Mutex
	speakerInitialized bool
)

// initSpeaker opens the audio device once per process.
func initSpeaker() error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(defaultSampleRate, defaultSampleRate.N(time.Second/10)); err != nil {
		return err
	}
	speakerInitialized = true
	return nil
}

// StreamSink plays remote audio through the system speaker.
// A source is downloaded completely before it can play.
type StreamSink struct {
	mu           sync.Mutex
	client       *http.Client
	logger       *slog.Logger
	tickInterval time.Duration
	handler      func(Event)

	state    State
	tag      uint64
	cancel   context.CancelFunc
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	started  bool // source handed to the speaker mixer
	tickStop chan struct{}
}

// StreamOption configures a StreamSink.
type StreamOption func(*StreamSink)

// WithHTTPClient sets the client used to fetch sources.
func WithHTTPClient(c *http.Client) StreamOption {
	return func(s *StreamSink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the sink logger.
func WithLogger(l *slog.Logger) StreamOption {
	return func(s *StreamSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStreamSink creates a sink with full volume and nothing loaded.
func NewStreamSink(opts ...StreamOption) *StreamSink {
	s := &StreamSink{
		client:       http.DefaultClient,
		logger:       slog.Default(),
		tickInterval: defaultTickInterval,
		level:        1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnEvent registers the event handler, replacing any previous one.
func (s *StreamSink) OnEvent(fn func(Event)) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// State returns the current output state.
func (s *StreamSink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load drops the current source and starts fetching url in the background.
// Events for the new source carry tag.
func (s *StreamSink) Load(url string, tag uint64) error {
	if url == "" {
		return errors.New("load: empty url")
	}

	s.mu.Lock()
	s.resetLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.tag = tag
	s.state = Fetching
	s.mu.Unlock()

	go s.fetch(ctx, url, tag)
	return nil
}

func (s *StreamSink) fetch(ctx context.Context, url string, tag uint64) {
	data, contentType, err := s.download(ctx, url)
	if err != nil {
		if ctx.Err() == nil {
			s.emit(Event{Kind: EventError, Tag: tag, Err: err})
		}
		return
	}

	streamer, format, err := decode(data, contentType, url)
	if err != nil {
		if ctx.Err() == nil {
			s.emit(Event{Kind: EventError, Tag: tag, Err: fmt.Errorf("decode stream: %w", err)})
		}
		return
	}

	s.mu.Lock()
	if s.tag != tag || ctx.Err() != nil {
		s.mu.Unlock()
		_ = streamer.Close()
		return
	}
	s.streamer = streamer
	s.format = format
	s.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}
	var out beep.Streamer = s.ctrl
	if format.SampleRate != defaultSampleRate {
		out = beep.Resample(resampleQuality, format.SampleRate, defaultSampleRate, s.ctrl)
	}
	s.volume = &effects.Volume{
		Streamer: out,
		Base:     2,
		Volume:   levelToVolume(s.level),
		Silent:   s.level <= 0,
	}
	s.state = Ready
	duration := format.SampleRate.D(streamer.Len())
	s.mu.Unlock()

	s.logger.Debug("stream buffered",
		slog.String("size", humanize.Bytes(uint64(len(data)))),
		slog.Duration("duration", duration),
		slog.Uint64("tag", tag))

	s.emit(Event{Kind: EventMetadata, Tag: tag, Duration: duration})
	s.emit(Event{Kind: EventBuffered, Tag: tag, Duration: duration})
}

func (s *StreamSink) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch stream: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch stream: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read stream: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Play starts or resumes output. It fails when the audio device cannot be
// opened or nothing is buffered.
func (s *StreamSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasSource() {
		return ErrNoSource
	}
	if s.state == Playing {
		return nil
	}
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}

	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()

	tag := s.tag
	if !s.started {
		speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
			go s.finished(tag)
		})))
		s.started = true
	}
	s.state = Playing
	s.startTickerLocked(tag)
	return nil
}

// Pause halts output, keeping the position.
func (s *StreamSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Playing {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	s.state = Ready
	s.stopTickerLocked()
}

// Stop drops the current source.
func (s *StreamSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.state = Empty
}

// SetPosition seeks to an absolute position, clamped to the source.
func (s *StreamSink) SetPosition(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return
	}
	n := s.format.SampleRate.N(d)
	n = max(0, min(n, s.streamer.Len()-1))
	speaker.Lock()
	err := s.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		s.logger.Warn("seek failed", slog.Duration("position", d), slog.Any("error", err))
	}
}

// Position returns the current playback position.
func (s *StreamSink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *StreamSink) positionLocked() time.Duration {
	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := s.format.SampleRate.D(s.streamer.Position())
	speaker.Unlock()
	return pos
}

// Duration returns the length of the loaded source, 0 when unknown.
func (s *StreamSink) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	return s.format.SampleRate.D(s.streamer.Len())
}

func (s *StreamSink) finished(tag uint64) {
	s.mu.Lock()
	if s.tag != tag || s.state != Playing {
		s.mu.Unlock()
		return
	}
	s.stopTickerLocked()
	s.started = false
	s.state = Ready
	duration := s.format.SampleRate.D(s.streamer.Len())
	s.mu.Unlock()

	s.emit(Event{Kind: EventEnded, Tag: tag, Position: duration, Duration: duration})
}

func (s *StreamSink) resetLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stopTickerLocked()
	if s.started {
		speaker.Clear()
		s.started = false
	}
	if s.streamer != nil {
		_ = s.streamer.Close()
		s.streamer = nil
	}
	s.ctrl = nil
	s.volume = nil
}

func (s *StreamSink) startTickerLocked(tag uint64) {
	s.stopTickerLocked()
	stop := make(chan struct{})
	s.tickStop = stop
	interval := s.tickInterval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				s.tick(tag)
			}
		}
	}()
}

func (s *StreamSink) stopTickerLocked() {
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}

func (s *StreamSink) tick(tag uint64) {
	s.mu.Lock()
	if s.tag != tag || s.state != Playing {
		s.mu.Unlock()
		return
	}
	pos := s.positionLocked()
	duration := s.format.SampleRate.D(s.streamer.Len())
	s.mu.Unlock()

	s.emit(Event{Kind: EventTimeUpdate, Tag: tag, Position: pos, Duration: duration})
}

// emit delivers an event outside the sink lock.
func (s *StreamSink) emit(e Event) {
	s.mu.Lock()
	fn := s.handler
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}
