package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/llehouerou/riptide/internal/playlist"
)

// ErrEmptySource is returned when a source has no playable tracks.
var ErrEmptySource = errors.New("nothing to play")

// SourceKind names where tracks come from.
type SourceKind string

const (
	SourceAlbum    SourceKind = "album"
	SourcePlaylist SourceKind = "playlist"
	SourceLiked    SourceKind = "liked"
	SourceSearch   SourceKind = "track"
)

// Source selects tracks on the backend. Ref is an album or playlist ID,
// or a search query; it is unused for liked songs.
type Source struct {
	Kind SourceKind
	Ref  string
}

// Tracks fetches the source and returns a display name and its tracks.
func (a *App) Tracks(ctx context.Context, src Source) (string, []playlist.Track, error) {
	switch src.Kind {
	case SourceAlbum:
		return a.Client.AlbumTracks(ctx, src.Ref)
	case SourcePlaylist:
		return a.Client.PlaylistTracks(ctx, src.Ref)
	case SourceLiked:
		tracks, err := a.Client.LikedSongs(ctx)
		return "Liked songs", tracks, err
	case SourceSearch:
		tracks, err := a.Client.SearchTracks(ctx, src.Ref, 0)
		return fmt.Sprintf("Search: %s", src.Ref), tracks, err
	}
	return "", nil, fmt.Errorf("unknown source %q", src.Kind)
}

// Start loads src as the queue and plays its first track.
func (a *App) Start(ctx context.Context, src Source) (string, error) {
	name, tracks, err := a.Tracks(ctx, src)
	if err != nil {
		return "", err
	}
	if len(tracks) == 0 {
		return name, ErrEmptySource
	}
	a.Playback.PlayTrack(tracks[0], tracks)
	a.logger.Info("queue loaded", "source", src.Kind, "name", name, "tracks", len(tracks))
	return name, nil
}
