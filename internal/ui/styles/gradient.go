package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Banner renders the app name in bold with the accent gradient.
func Banner(text string) string {
	t := T()
	return Gradient(text, lipgloss.NewStyle().Bold(true), t.Accent, t.AccentEnd)
}

// Gradient colors each grapheme of text along an HCL blend from one color
// to the other, on top of base. Colors that are not "#rrggbb" cannot be
// blended, so the text gets from as a single color.
func Gradient(text string, base lipgloss.Style, from, to lipgloss.Color) string {
	var clusters []string
	for gr := uniseg.NewGraphemes(text); gr.Next(); {
		clusters = append(clusters, gr.Str())
	}
	if len(clusters) == 0 {
		return ""
	}

	c1, err1 := colorful.Hex(string(from))
	c2, err2 := colorful.Hex(string(to))
	if len(clusters) == 1 || err1 != nil || err2 != nil {
		return base.Foreground(from).Render(text)
	}

	var b strings.Builder
	for i, hex := range blend(c1, c2, len(clusters)) {
		b.WriteString(base.Foreground(lipgloss.Color(hex)).Render(clusters[i]))
	}
	return b.String()
}

// blend returns n hex colors from c1 to c2 inclusive. n must be at least 2.
func blend(c1, c2 colorful.Color, n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = c1.BlendHcl(c2, float64(i)/float64(n-1)).Clamped().Hex()
	}
	return out
}
