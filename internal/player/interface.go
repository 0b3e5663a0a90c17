// internal/player/interface.go
package player

import (
	"time"
)

// EventKind identifies what a sink is reporting.
type EventKind int

const (
	// EventMetadata means the duration of the loaded source is known.
	EventMetadata EventKind = iota
	// EventBuffered means the whole source has been fetched.
	EventBuffered
	// EventTimeUpdate reports playback progress.
	EventTimeUpdate
	// EventEnded means output reached the end of the source.
	EventEnded
	// EventError means the source could not be fetched or decoded.
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventMetadata:
		return "Metadata"
	case EventBuffered:
		return "Buffered"
	case EventTimeUpdate:
		return "TimeUpdate"
	case EventEnded:
		return "Ended"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is delivered to the sink's event handler. Tag echoes the value
// given to the Load call that produced it.
type Event struct {
	Kind     EventKind
	Tag      uint64
	Position time.Duration
	Duration time.Duration
	Err      error
}

// Clock exposes the read-only playback clock.
type Clock interface {
	Position() time.Duration
	Duration() time.Duration
}

// Sink is a single audio output handle.
//
// Implementations never call the event handler from inside one of their
// own methods, so callers may hold locks while calling into a Sink.
type Sink interface {
	Clock
	Load(url string, tag uint64) error
	Play() error
	Pause()
	Stop()
	SetPosition(d time.Duration)
	SetVolume(level float64)
	Volume() float64
	OnEvent(fn func(Event))
}

// Verify StreamSink implements Sink at compile time.
var _ Sink = (*StreamSink)(nil)
