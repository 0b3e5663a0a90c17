// internal/player/state.go
package player

// State is the output state of a StreamSink.
//
//	┌──────────┐  load   ┌──────────┐  fetched  ┌──────────┐
//	│  Empty   │ ───────▶│ Fetching │ ─────────▶│  Ready   │
//	└──────────┘         └──────────┘           └──────────┘
//	     ▲                                        │ ▲
//	     │ stop                              play │ │ pause
//	     │                                        ▼ │
//	     │                                     ┌──────────┐
//	     └─────────────────────────────────────│ Playing  │
//	                                           └──────────┘
//
// A Load from any state drops the current source and returns to Fetching.
// Ready covers both "never started" and "paused".
type State int

const (
	Empty State = iota
	Fetching
	Ready
	Playing
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Fetching:
		return "Fetching"
	case Ready:
		return "Ready"
	case Playing:
		return "Playing"
	default:
		return "Unknown"
	}
}

// HasSource returns true once a decoded source is attached.
func (s State) HasSource() bool {
	return s == Ready || s == Playing
}
