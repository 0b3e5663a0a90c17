package lastfm

import (
	"time"

	"github.com/llehouerou/riptide/internal/playlist"
)

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time // When playback started
}

// FromTrack builds the scrobble payload for a backend track. The first
// artist is the one Last.fm matches on.
func FromTrack(t playlist.Track, startedAt time.Time) ScrobbleTrack {
	st := ScrobbleTrack{
		Track:     t.Title,
		Album:     t.Album,
		Duration:  t.Duration,
		Timestamp: startedAt,
	}
	if len(t.Artists) > 0 {
		st.Artist = t.Artists[0]
	}
	return st
}

// Scrobbleable reports whether Last.fm would accept the track.
// Tracks shorter than 30 seconds are never scrobbled.
func (s ScrobbleTrack) Scrobbleable() bool {
	if s.Artist == "" || s.Track == "" {
		return false
	}
	return s.Duration == 0 || s.Duration >= minScrobbleLength
}

const minScrobbleLength = 30 * time.Second
