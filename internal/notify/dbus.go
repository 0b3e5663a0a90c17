//go:build linux

package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	fdoDest  = "org.freedesktop.Notifications"
	fdoPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	fdoIface = "org.freedesktop.Notifications"

	appName = "Riptide"
)

// dbusNotifier talks to the freedesktop notification server.
type dbusNotifier struct {
	obj dbus.BusObject
}

// New connects to the session bus. Without one it returns Discard, so
// headless sessions keep playing silently.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return Discard{}, nil //nolint:nilerr // notifications are optional
	}
	return &dbusNotifier{obj: conn.Object(fdoDest, fdoPath)}, nil
}

// Notify calls org.freedesktop.Notifications.Notify(app_name, replaces_id,
// app_icon, summary, body, actions, hints, expire_timeout).
func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
		"desktop-entry": dbus.MakeVariant("riptide"),
		"category":      dbus.MakeVariant("x-riptide.track"),
	}
	var id uint32
	err := n.obj.Call(fdoIface+".Notify", 0,
		appName, notif.ReplacesID, notif.Icon, notif.Title, escapeMarkup(notif.Body),
		[]string{}, hints, notif.Timeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return id, nil
}

func (n *dbusNotifier) Close(id uint32) error {
	return n.obj.Call(fdoIface+".CloseNotification", 0, id).Err
}
