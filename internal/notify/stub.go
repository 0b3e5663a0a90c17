//go:build !linux

package notify

import "github.com/gen2brain/beeep"

// beeepNotifier uses the platform's native notifications where there is
// no freedesktop server. They cannot be replaced or closed, so every
// notification gets ID 0.
type beeepNotifier struct{}

// New returns a notifier backed by the platform's native notifications.
func New() (Notifier, error) {
	return beeepNotifier{}, nil
}

func (beeepNotifier) Notify(n Notification) (uint32, error) {
	return 0, beeep.Notify(n.Title, n.Body, n.Icon)
}

func (beeepNotifier) Close(uint32) error {
	return nil
}
