package nowplaying

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/riptide/internal/ui/playerbar"
	"github.com/llehouerou/riptide/internal/ui/render"
	"github.com/llehouerou/riptide/internal/ui/styles"
)

const minQueueRows = 3

// View implements tea.Model.
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}
	s := styles.T().S()

	var b strings.Builder

	header := styles.Banner("riptide")
	if m.source != "" {
		header += s.Muted.Render("  " + render.Truncate(m.source, max(width-10, 0)))
	}
	b.WriteString(header)
	b.WriteString("\n")

	if bar := playerbar.Render(playerbar.NewState(m.session), width); bar != "" {
		b.WriteString(bar)
	} else {
		b.WriteString(s.Subtle.Render("Nothing playing"))
	}
	b.WriteString("\n")

	helpView := m.help.View(m.keys)
	rows := minQueueRows
	if m.height > 0 {
		used := 1 + playerbar.Height + 2 + 1 + strings.Count(helpView, "\n") + 1
		rows = max(m.height-used, minQueueRows)
	}
	b.WriteString(m.renderQueue(width, rows))
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(s.Error.Render(render.Truncate(m.err, width)))
	}
	b.WriteString("\n")
	b.WriteString(helpView)

	return b.String()
}

func (m Model) renderQueue(width, rows int) string {
	s := styles.T().S()

	current := m.session.QueueIndex + 1
	title := fmt.Sprintf("Queue (%d/%d)", max(current, 0), len(m.queue))

	lines := []string{s.Title.Render(title), s.Subtle.Render(render.Separator(width))}
	if len(m.queue) == 0 {
		lines = append(lines, s.Subtle.Render("Queue is empty"))
		return strings.Join(lines, "\n")
	}

	// Keep the cursor visible
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.queue))

	numWidth := len(fmt.Sprint(len(m.queue)))
	for i := start; i < end; i++ {
		t := m.queue[i]
		marker := "  "
		if i == m.session.QueueIndex {
			marker = "▸ "
		}
		num := fmt.Sprintf("%*d. ", numWidth, i+1)
		dur := render.Duration(t.Duration)
		text := t.Title
		if artists := t.ArtistLine(); artists != "" {
			text += " - " + artists
		}
		avail := max(width-lipgloss.Width(marker)-len(num)-len(dur)-1, 0)
		line := render.Row(marker+num+render.Truncate(text, avail), dur, width)

		switch {
		case i == m.cursor:
			line = s.Cursor.Render(line)
		case i == m.session.QueueIndex:
			line = s.Playing.Render(line)
		default:
			line = s.Base.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
