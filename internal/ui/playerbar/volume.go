package playerbar

import (
	"fmt"

	"github.com/llehouerou/riptide/internal/icons"
)

// RenderVolumeCompact renders the volume indicator, e.g. "🔊  80%".
func RenderVolumeCompact(volume float64) string {
	pct := int(volume*100 + 0.5)
	return progressTimeStyle().Render(fmt.Sprintf("%s %3d%%", icons.Volume(volume), pct))
}
