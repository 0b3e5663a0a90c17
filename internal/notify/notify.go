// Package notify shows "now playing" desktop notifications.
package notify

import "strings"

// Urgency is the freedesktop urgency hint.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification is one desktop notification.
type Notification struct {
	Title      string
	Body       string // plain text; escaped where the server parses markup
	Icon       string // image path or icon name
	Timeout    int32  // ms; -1 lets the server decide, 0 never expires
	ReplacesID uint32 // 0 opens a new notification
	Urgency    Urgency
}

// Notifier sends desktop notifications. Servers that cannot replace or
// close notifications return ID 0.
type Notifier interface {
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Notification) (uint32, error) { return 0, nil }
func (Discard) Close(uint32) error                  { return nil }

var markup = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeMarkup keeps track names such as "Simon & Garfunkel" intact on
// servers that render body markup.
func escapeMarkup(s string) string {
	return markup.Replace(s)
}
