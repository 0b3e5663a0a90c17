//go:build windows

package stderr

import "log/slog"

// Capture does nothing on Windows, where the audio backend does not write
// to stderr.
type Capture struct{}

func Start(*slog.Logger) (*Capture, error) { return &Capture{}, nil }

func (*Capture) Stop() {}
