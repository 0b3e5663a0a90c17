package playback

import "github.com/llehouerou/riptide/internal/playlist"

// Track is a playable item. Values are copies; the controller never hands
// out pointers into its queue.
type Track = playlist.Track
