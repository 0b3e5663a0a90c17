package mpris

import "github.com/llehouerou/riptide/internal/mediasession"

// ArtLocalizer turns a remote cover into something a desktop shell can
// load, typically a file:// URL of a cached copy. It returns "" on failure.
type ArtLocalizer func(art mediasession.Artwork) string

// artURL picks the largest cover and localizes it when possible.
// Without a localizer the remote URL is used as is.
func artURL(meta mediasession.Metadata, localize ArtLocalizer) string {
	best, ok := meta.Largest()
	if !ok {
		return ""
	}
	if localize == nil {
		return best.URL
	}
	return localize(best)
}
