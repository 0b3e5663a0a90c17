package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/llehouerou/riptide/internal/mediasession"
	"github.com/llehouerou/riptide/internal/playlist"
)

// CoverSizes are the square variants offered to media surfaces.
var CoverSizes = []int{96, 128, 192, 256, 384, 512}

// ResolveStream returns the streaming URL for a track. The token travels in
// the query string because the audio fetch cannot set headers.
func (c *Client) ResolveStream(ctx context.Context, trackID string) (string, error) {
	if trackID == "" {
		return "", fmt.Errorf("resolve stream: %w", ErrNotFound)
	}
	token, err := c.AuthToken(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve stream: %w", err)
	}
	q := url.Values{"token": {token}}
	return c.base + "/music/stream/" + pathID(trackID) + "?" + q.Encode(), nil
}

// CoverArt lists the cover variants of a track, smallest first.
// Tracks without a cover yield nil.
func (c *Client) CoverArt(t playlist.Track) []mediasession.Artwork {
	if t.CoverRef == "" || t.ID == "" {
		return nil
	}
	token := c.Token()
	art := make([]mediasession.Artwork, 0, len(CoverSizes))
	for _, size := range CoverSizes {
		q := url.Values{"size": {strconv.Itoa(size)}}
		if token != "" {
			q.Set("token", token)
		}
		art = append(art, mediasession.Artwork{
			URL:  c.base + "/music/cover/" + pathID(t.ID) + "?" + q.Encode(),
			Size: size,
		})
	}
	return art
}

// StartPlay opens a play history record and returns its identifier.
func (c *Client) StartPlay(ctx context.Context, trackID string) (string, error) {
	body := map[string]any{"track_id": numericID(trackID)}
	var r struct {
		PlayHistoryID flexID `json:"play_history_id"`
	}
	if err := c.call(ctx, c.jsonRequest(http.MethodPost, "/playback/start", body), &r); err != nil {
		return "", fmt.Errorf("start play %s: %w", trackID, err)
	}
	if r.PlayHistoryID == "" {
		return "", fmt.Errorf("start play %s: missing play_history_id", trackID)
	}
	return string(r.PlayHistoryID), nil
}

// UpdatePlay reports progress on an open record.
func (c *Client) UpdatePlay(ctx context.Context, playID string, seconds int, completed bool) error {
	body := map[string]any{
		"play_history_id": numericID(playID),
		"duration_played": seconds,
		"completed":       completed,
	}
	if err := c.call(ctx, c.jsonRequest(http.MethodPut, "/playback/update", body), nil); err != nil {
		return fmt.Errorf("update play %s: %w", playID, err)
	}
	return nil
}

// numericID sends integer identifiers as JSON numbers.
func numericID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

// flexID accepts both JSON numbers and strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}
