package playerbar

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/riptide/internal/icons"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/ui/render"
)

const (
	filledBlock = "━"
	emptyBlock  = "─"
	minBarWidth = 3
)

// RenderProgressBar renders the status glyph, times and a bar that fills
// the remaining width.
// Format: ▶  1:23 ━━━━━───── 4:56
func RenderProgressBar(position, duration time.Duration, width int, status playback.State) string {
	glyph := statusIcon(status)
	posStr := render.Duration(position)
	durStr := "--:--"
	if duration > 0 {
		durStr = render.Duration(duration)
	}

	fixedWidth := lipgloss.Width(glyph) + 2 + lipgloss.Width(posStr) + 1 + 1 + lipgloss.Width(durStr)
	barWidth := width - fixedWidth

	if barWidth < minBarWidth {
		// Too narrow for a bar, just show times
		return glyph + "  " + posStr + " / " + durStr
	}

	var ratio float64
	if duration > 0 {
		ratio = min(float64(position)/float64(duration), 1)
	}
	filled := min(int(float64(barWidth)*ratio), barWidth)

	bar := progressBarFilled().Render(strings.Repeat(filledBlock, filled)) +
		progressBarEmpty().Render(strings.Repeat(emptyBlock, barWidth-filled))

	return glyph + "  " + progressTimeStyle().Render(posStr) + " " + bar + " " + progressTimeStyle().Render(durStr)
}

func statusIcon(s playback.State) string {
	switch s {
	case playback.StatePlaying:
		return icons.Play()
	case playback.StatePaused:
		return icons.Pause()
	case playback.StateLoading:
		return icons.Loading()
	case playback.StateIdle:
	}
	return " "
}
