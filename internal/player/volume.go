package player

import (
	"math"

	"github.com/gopxl/beep/v2/speaker"
)

// SetVolume sets the volume level (0.0 to 1.0).
// The level is kept across loads and applied to every new source.
func (s *StreamSink) SetVolume(level float64) {
	level = ClampLevel(level)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	if s.volume == nil {
		return
	}
	speaker.Lock()
	s.volume.Volume = levelToVolume(level)
	s.volume.Silent = level <= 0
	speaker.Unlock()
}

// Volume returns the current volume level (0.0 to 1.0).
func (s *StreamSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// ClampLevel bounds a volume level to [0, 1].
func ClampLevel(level float64) float64 {
	if math.IsNaN(level) || level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep uses a logarithmic scale where Volume is in "decibels" with base 2.
// Volume = 0 means no change, -1 = half volume, -2 = quarter, etc.
// We map: 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent)
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
