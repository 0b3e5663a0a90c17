// Package playerbar renders the one-line player bar.
package playerbar

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/riptide/internal/icons"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/ui/render"
)

// Height is the rendered height including the border.
const Height = 3

// State holds everything needed to render the player bar.
type State struct {
	Status   playback.State
	Title    string
	Artist   string
	Album    string
	Position time.Duration
	Duration time.Duration
	Volume   float64
	Shuffle  bool
	Repeat   playback.RepeatMode
	Index    int // 0-based queue position
	QueueLen int
}

// NewState captures a session snapshot. Without a current track the
// state is empty and Render draws nothing.
func NewState(s playback.Session) State {
	st := State{
		Status:   s.State,
		Volume:   s.Volume,
		Shuffle:  s.Shuffle,
		Repeat:   s.RepeatMode,
		Index:    s.QueueIndex,
		QueueLen: s.QueueLen,
	}
	if s.Track == nil {
		return st
	}
	st.Title = s.Track.Title
	st.Artist = s.Track.ArtistLine()
	st.Album = s.Track.Album
	st.Position = s.Position
	st.Duration = s.Duration
	if st.Duration == 0 {
		st.Duration = s.Track.Duration
	}
	return st
}

// Render returns the bar for the given total width, or "" when idle with
// nothing selected.
func Render(s State, width int) string {
	if s.Title == "" && s.Status == playback.StateIdle {
		return ""
	}

	innerWidth := max(width-4, 0) // border and padding

	title := s.Title
	if title == "" {
		title = "Unknown Track"
	}
	var infoParts []string
	if s.Artist != "" {
		infoParts = append(infoParts, s.Artist)
	}
	if s.Album != "" {
		infoParts = append(infoParts, s.Album)
	}
	info := strings.Join(infoParts, " · ")

	right := strings.Join(nonEmpty(
		modeIcons(s.Shuffle, s.Repeat),
		RenderVolumeCompact(s.Volume),
	), "  ")
	rightWidth := lipgloss.Width(right)

	progress := RenderProgressBar(s.Position, s.Duration, max(innerWidth/3, minBarWidth+12), s.Status)
	progressWidth := lipgloss.Width(progress)

	const sep = "   "
	available := innerWidth - progressWidth - rightWidth - 2*len(sep)

	var left string
	switch {
	case available <= 0:
		left = ""
	case lipgloss.Width(title)+len(sep)+lipgloss.Width(info) <= available || info == "":
		left = titleStyle().Render(render.Truncate(title, available))
		if info != "" {
			left += sep + artistStyle().Render(info)
		}
	default:
		maxInfo := available - lipgloss.Width(title) - len(sep)
		if maxInfo < 4 {
			left = titleStyle().Render(render.Truncate(title, available))
		} else {
			left = titleStyle().Render(title) + sep + artistStyle().Render(render.Truncate(info, maxInfo))
		}
	}

	line := render.Row(left+sep+progress, right, innerWidth)
	return barStyle().Width(max(width-2, 0)).Render(render.Fit(line, innerWidth))
}

func modeIcons(shuffle bool, repeat playback.RepeatMode) string {
	var parts []string
	if shuffle {
		parts = append(parts, icons.Shuffle())
	}
	switch repeat {
	case playback.RepeatAll:
		parts = append(parts, icons.RepeatAll())
	case playback.RepeatOne:
		parts = append(parts, icons.RepeatOne())
	case playback.RepeatOff:
	}
	return metaStyle().Render(strings.Join(parts, " "))
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if lipgloss.Width(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}
