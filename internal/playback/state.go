// internal/playback/state.go
package playback

import "github.com/llehouerou/riptide/internal/playlist"

// State represents the playback state.
//
//	Idle ──play──▶ Loading ──stabilized──▶ Playing ⇄ Paused
//	  ▲               │ ▲                    │
//	  └──error/end────┘ └──next/ended/play───┘
//
// Any PlayTrack goes through Loading. Loading leaves only through the
// buffering-stabilization sequence, an error, or a newer PlayTrack.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if audio is attached (playing or paused).
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// RepeatMode defines the repeat behavior.
type RepeatMode = playlist.RepeatMode

const (
	RepeatOff = playlist.RepeatOff
	RepeatAll = playlist.RepeatAll
	RepeatOne = playlist.RepeatOne
)
