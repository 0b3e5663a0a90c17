package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/llehouerou/riptide/internal/playlist"
)

type albumDetails struct {
	ID        flexID       `json:"id"`
	Name      string       `json:"name"`
	Artists   []string     `json:"artists"`
	CoverPath *string      `json:"cover_path"`
	Tracks    []albumTrack `json:"tracks"`
}

type albumTrack struct {
	ID          flexID `json:"id"`
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	TrackNumber *int   `json:"track_number"`
}

type playlistDetails struct {
	ID     flexID          `json:"id"`
	Name   string          `json:"name"`
	Tracks []playlistTrack `json:"tracks"`
}

type playlistTrack struct {
	TrackID   flexID   `json:"track_id"`
	Title     string   `json:"title"`
	Duration  int      `json:"duration"`
	Artists   []string `json:"artists"`
	CoverPath *string  `json:"cover_path"`
}

type trackResponse struct {
	ID        flexID   `json:"id"`
	Title     string   `json:"title"`
	Duration  int      `json:"duration"`
	CoverPath *string  `json:"cover_path"`
	Artists   []string `json:"artists"`
	Album     *struct {
		ID   flexID `json:"id"`
		Name string `json:"name"`
	} `json:"album"`
}

// AlbumTracks returns an album's tracks in album order.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) (string, []playlist.Track, error) {
	a, err := getOne[albumDetails](ctx, c, "/albums/"+pathID(albumID))
	if err != nil {
		return "", nil, fmt.Errorf("album %s: %w", albumID, err)
	}
	tracks := lo.Map(a.Tracks, func(t albumTrack, _ int) playlist.Track {
		return playlist.Track{
			ID:       string(t.ID),
			Title:    t.Title,
			Artists:  a.Artists,
			Album:    a.Name,
			AlbumID:  string(a.ID),
			CoverRef: deref(a.CoverPath),
			Duration: seconds(t.Duration),
		}
	})
	return a.Name, tracks, nil
}

// PlaylistTracks returns a playlist's tracks in playlist order.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) (string, []playlist.Track, error) {
	p, err := getOne[playlistDetails](ctx, c, "/playlists/"+pathID(playlistID))
	if err != nil {
		return "", nil, fmt.Errorf("playlist %s: %w", playlistID, err)
	}
	tracks := lo.Map(p.Tracks, func(t playlistTrack, _ int) playlist.Track {
		return playlist.Track{
			ID:       string(t.TrackID),
			Title:    t.Title,
			Artists:  t.Artists,
			CoverRef: deref(t.CoverPath),
			Duration: seconds(t.Duration),
		}
	})
	return p.Name, tracks, nil
}

// LikedSongs returns the user's liked tracks, most recent first.
func (c *Client) LikedSongs(ctx context.Context) ([]playlist.Track, error) {
	list, err := getOne[[]trackResponse](ctx, c, "/library/liked-songs?limit=500")
	if err != nil {
		return nil, fmt.Errorf("liked songs: %w", err)
	}
	return lo.Map(list, trackResponse.toTrack), nil
}

// SearchTracks returns up to limit tracks matching query, best first.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]playlist.Track, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{"query": {query}, "limit": {strconv.Itoa(limit)}}
	list, err := getOne[[]trackResponse](ctx, c, "/search/tracks?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return lo.Map(list, trackResponse.toTrack), nil
}

func (t trackResponse) toTrack(int) playlist.Track {
	tr := playlist.Track{
		ID:       string(t.ID),
		Title:    t.Title,
		Artists:  t.Artists,
		CoverRef: deref(t.CoverPath),
		Duration: seconds(t.Duration),
	}
	if t.Album != nil {
		tr.Album = t.Album.Name
		tr.AlbumID = string(t.Album.ID)
	}
	return tr
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
