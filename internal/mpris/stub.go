//go:build !linux

package mpris

import (
	"errors"
	"log/slog"

	"github.com/llehouerou/riptide/internal/mediasession"
	"github.com/llehouerou/riptide/internal/player"
)

// ErrUnsupported is returned by New on platforms without MPRIS.
var ErrUnsupported = errors.New("mpris is only available on linux")

// Surface is never constructed on non-Linux platforms.
type Surface struct{}

// Option configures a Surface.
type Option func(*Surface)

// WithClock is a no-op on non-Linux platforms.
func WithClock(player.Clock) Option { return func(*Surface) {} }

// WithArtLocalizer is a no-op on non-Linux platforms.
func WithArtLocalizer(ArtLocalizer) Option { return func(*Surface) {} }

// WithLogger is a no-op on non-Linux platforms.
func WithLogger(*slog.Logger) Option { return func(*Surface) {} }

// New always fails on non-Linux platforms.
func New(...Option) (*Surface, error) {
	return nil, ErrUnsupported
}

// Close is a no-op on non-Linux platforms.
func (s *Surface) Close() error { return nil }

func (s *Surface) SetMetadata(mediasession.Metadata)                    {}
func (s *Surface) SetStatus(mediasession.Status)                        {}
func (s *Surface) SetHandler(mediasession.Action, mediasession.Handler) {}
