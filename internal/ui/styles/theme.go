// Package styles holds the palette and lipgloss styles of the terminal view.
package styles

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color palette.
type Theme struct {
	Accent    lipgloss.Color // current track, elapsed time, banner start
	AccentEnd lipgloss.Color // banner end
	Text      lipgloss.Color
	Dim       lipgloss.Color
	Faint     lipgloss.Color // separators, empty bar cells
	Highlight lipgloss.Color // queue cursor background
	Error     lipgloss.Color

	once   sync.Once
	styles Styles
}

// Styles are the rendered roles used across the view.
type Styles struct {
	Base    lipgloss.Style
	Muted   lipgloss.Style
	Subtle  lipgloss.Style
	Title   lipgloss.Style
	Playing lipgloss.Style
	Cursor  lipgloss.Style
	Bar     lipgloss.Style
	Filled  lipgloss.Style
	Error   lipgloss.Style
}

var tide = Theme{
	Accent:    "#2dd4bf",
	AccentEnd: "#3b82f6",
	Text:      "#c0c0c0",
	Dim:       "#808080",
	Faint:     "#585858",
	Highlight: "#303030",
	Error:     "#ff5555",
}

// T returns the theme.
func T() *Theme { return &tide }

// S returns the styles built from t, once.
func (t *Theme) S() *Styles {
	t.once.Do(func() {
		base := lipgloss.NewStyle().Foreground(t.Text)
		t.styles = Styles{
			Base:    base,
			Muted:   lipgloss.NewStyle().Foreground(t.Dim),
			Subtle:  lipgloss.NewStyle().Foreground(t.Faint),
			Title:   base.Bold(true),
			Playing: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
			Cursor:  lipgloss.NewStyle().Background(t.Highlight).Foreground(t.Text),
			Bar: lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(t.Faint).
				Padding(0, 1),
			Filled: lipgloss.NewStyle().Foreground(t.Accent),
			Error:  lipgloss.NewStyle().Foreground(t.Error),
		}
	})
	return &t.styles
}
