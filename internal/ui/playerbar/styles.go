package playerbar

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/riptide/internal/ui/styles"
)

func barStyle() lipgloss.Style          { return styles.T().S().Bar }
func titleStyle() lipgloss.Style        { return styles.T().S().Title }
func artistStyle() lipgloss.Style       { return styles.T().S().Muted }
func metaStyle() lipgloss.Style         { return styles.T().S().Subtle }
func progressBarFilled() lipgloss.Style { return styles.T().S().Filled }
func progressBarEmpty() lipgloss.Style  { return styles.T().S().Subtle }
func progressTimeStyle() lipgloss.Style { return styles.T().S().Muted }
