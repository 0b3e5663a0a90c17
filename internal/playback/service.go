package playback

import (
	"context"
	"errors"
	"time"

	"github.com/llehouerou/riptide/internal/mediasession"
)

// ErrInvalidIndex is returned for queue positions outside the queue.
var ErrInvalidIndex = errors.New("queue index out of range")

// Service defines the playback service contract.
//
// All operations are safe for concurrent use. None of them block on the
// network: stream resolution and telemetry run in the background and their
// results are discarded once a newer track has been requested.
type Service interface {
	// Playback control
	PlayTrack(track Track, queue []Track) // nil queue keeps the current one
	TogglePlay()
	Play()
	Pause()
	PlayNext()
	PlayPrevious()
	Seek(position time.Duration)
	SeekBy(delta time.Duration)
	SetVolume(level float64)

	// Modes
	ToggleShuffle() bool
	ToggleRepeat() RepeatMode

	// Queue manipulation
	AddToQueue(track Track)
	PlayNextInQueue(track Track)
	JumpTo(index int) error
	RemoveFromQueue(index int) error
	ClearQueue()

	// Queries
	Snapshot() Session
	Queue() []Track

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}

// Session is a point-in-time copy of the shared playback session.
type Session struct {
	Track      *Track // nil when nothing is selected
	State      State
	Position   time.Duration
	Duration   time.Duration // 0 when unknown
	Volume     float64
	Shuffle    bool
	RepeatMode RepeatMode
	QueueIndex int
	QueueLen   int
}

// StreamResolver turns a track into a playable URL.
type StreamResolver interface {
	ResolveStream(ctx context.Context, trackID string) (string, error)
}

// Telemetry reports listening progress. Every method must return quickly.
type Telemetry interface {
	Start(track Track)
	Pause()
	Resume()
	Stop()
}

// MediaSession mirrors the session to OS media controls. Every method must
// return quickly and never call back synchronously.
type MediaSession interface {
	Publish(track Track)
	SetStatus(status mediasession.Status)
	BindHandlers(c mediasession.Controls)
	Unbind()
}

type noopTelemetry struct{}

func (noopTelemetry) Start(Track) {}
func (noopTelemetry) Pause()      {}
func (noopTelemetry) Resume()     {}
func (noopTelemetry) Stop()       {}

type noopMedia struct{}

func (noopMedia) Publish(Track)                      {}
func (noopMedia) SetStatus(mediasession.Status)      {}
func (noopMedia) BindHandlers(mediasession.Controls) {}
func (noopMedia) Unbind()                            {}
