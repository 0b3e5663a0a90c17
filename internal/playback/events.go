package playback

import "time"

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when a track starts loading.
//
// Emitted by every operation that loads audio: PlayTrack, PlayNext,
// PlayPrevious, JumpTo, a natural end that advances, and repeat-one
// replays. Restarting the current track emits it too, with Previous and
// Current naming the same track.
//
// Current is nil when the session went idle after the queue ran out.
type TrackChange struct {
	Previous *Track
	Current  *Track
	Index    int
}

// QueueChange is emitted when the queue contents or index change.
type QueueChange struct {
	Tracks []Track
	Index  int
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	RepeatMode RepeatMode
	Shuffle    bool
}

// PositionChange is emitted on seeks and sink time updates.
type PositionChange struct {
	Position time.Duration
	Duration time.Duration
}

// VolumeChange is emitted when the volume level changes.
type VolumeChange struct {
	Volume float64
}

// ErrorEvent is emitted when an error occurs during playback.
type ErrorEvent struct {
	Operation string // e.g., "resolve", "play"
	TrackID   string
	Err       error
}
