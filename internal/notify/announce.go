package notify

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/llehouerou/riptide/internal/playlist"
)

const trackTimeout = 5000 // ms

// IconFunc returns a local image path for a track, or "".
type IconFunc func(track playlist.Track) string

// Announcer shows one "now playing" notification, replacing the previous
// one on every track change.
type Announcer struct {
	notifier Notifier
	icon     IconFunc
	logger   *slog.Logger

	mu     sync.Mutex
	lastID uint32
}

// NewAnnouncer creates an announcer. icon may be nil.
func NewAnnouncer(n Notifier, icon IconFunc, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{notifier: n, icon: icon, logger: logger}
}

// Announce shows track. Errors are logged; notifications are best effort.
func (a *Announcer) Announce(track playlist.Track) {
	n := Notification{
		Title:   track.Title,
		Body:    body(track),
		Timeout: trackTimeout,
		Urgency: UrgencyLow,
	}
	if a.icon != nil {
		n.Icon = a.icon(track)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	n.ReplacesID = a.lastID

	id, err := a.notifier.Notify(n)
	if err != nil {
		a.logger.Debug("notification failed", "track", track.ID, "err", err)
		return
	}
	a.lastID = id
}

// Dismiss closes the current notification, if any.
func (a *Announcer) Dismiss() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastID == 0 {
		return
	}
	if err := a.notifier.Close(a.lastID); err != nil {
		a.logger.Debug("close notification", "err", err)
	}
	a.lastID = 0
}

func body(t playlist.Track) string {
	parts := make([]string, 0, 2)
	if line := t.ArtistLine(); line != "" {
		parts = append(parts, line)
	}
	if t.Album != "" {
		parts = append(parts, t.Album)
	}
	return strings.Join(parts, " - ")
}
