// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Backend operations
	OpLogin        Op = "log in"
	OpAlbumLoad    Op = "load album"
	OpPlaylistLoad Op = "load playlist"
	OpLikedLoad    Op = "load liked songs"

	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpStreamResolve Op = "resolve stream"
	OpQueueEdit     Op = "edit queue"

	// Settings
	OpSettingsLoad Op = "load settings"
	OpSettingsSave Op = "save settings"

	// Last.fm
	OpLastfmLink  Op = "link Last.fm account"
	OpLastfmRetry Op = "submit queued scrobbles"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
