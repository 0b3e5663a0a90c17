// Package mediasession mirrors the playback session to the operating
// system's media controls and routes media keys back to the player.
package mediasession

import (
	"time"
)

// DefaultSeekOffset is used when a seek action carries no offset.
const DefaultSeekOffset = 10 * time.Second

// Status is the coarse playback status shown by the OS.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "Stopped"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Action is a media control request.
type Action string

const (
	ActionPlay          Action = "play"
	ActionPause         Action = "pause"
	ActionNextTrack     Action = "nexttrack"
	ActionPreviousTrack Action = "previoustrack"
	ActionSeekBackward  Action = "seekbackward"
	ActionSeekForward   Action = "seekforward"
	ActionSeekTo        Action = "seekto"
)

// Actions lists every action a surface may route.
var Actions = []Action{
	ActionPlay,
	ActionPause,
	ActionNextTrack,
	ActionPreviousTrack,
	ActionSeekBackward,
	ActionSeekForward,
	ActionSeekTo,
}

// Details carries the arguments of an action. Zero offsets mean "use the
// default".
type Details struct {
	Action     Action
	SeekOffset time.Duration
	SeekTime   time.Duration
}

// Handler runs an action.
type Handler func(Details)

// Artwork is one size variant of a cover image.
type Artwork struct {
	URL  string
	Size int // edge length in pixels
}

// Metadata describes the now-playing track.
type Metadata struct {
	TrackID string
	Title   string
	Artist  string
	Artists []string
	Album   string
	Length  time.Duration
	Artwork []Artwork
}

// Largest returns the biggest artwork variant, or false when there is none.
func (m Metadata) Largest() (Artwork, bool) {
	if len(m.Artwork) == 0 {
		return Artwork{}, false
	}
	best := m.Artwork[0]
	for _, a := range m.Artwork[1:] {
		if a.Size > best.Size {
			best = a
		}
	}
	return best, true
}

// Surface is an OS media-controls endpoint.
//
// Surfaces invoke handlers from their own goroutines. SetHandler with a nil
// handler clears the action.
type Surface interface {
	SetMetadata(meta Metadata)
	SetStatus(status Status)
	SetHandler(action Action, h Handler)
}

// Controls is what media actions drive.
type Controls interface {
	Play()
	Pause()
	PlayNext()
	PlayPrevious()
	Seek(position time.Duration)
	SeekBy(delta time.Duration)
}
