package lastfm

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/samber/lo"
	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNotAuthenticated is returned by submissions made before a session
// key is set.
var ErrNotAuthenticated = errors.New("not authenticated")

// MaxBatch is the Last.fm limit for one scrobble request.
const MaxBatch = 50

const authURL = "https://www.last.fm/api/auth/"

// Client talks to the Last.fm API. It is safe for concurrent use once
// the session key is set.
type Client struct {
	api    *lastfm.Api
	apiKey string

	mu      sync.Mutex
	session string
}

func New(apiKey, apiSecret string) *Client {
	return &Client{api: lastfm.New(apiKey, apiSecret), apiKey: apiKey}
}

// SetSessionKey installs a session obtained earlier by GetSession.
func (c *Client) SetSessionKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = key
	c.api.SetSession(key)
}

func (c *Client) authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != ""
}

// GetToken starts the desktop auth flow.
func (c *Client) GetToken() (string, error) {
	token, err := c.api.GetToken()
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// GetAuthURL is the page where the user approves token. Last.fm redirects
// to callback afterwards when it is set.
func (c *Client) GetAuthURL(token, callback string) string {
	q := url.Values{"api_key": {c.apiKey}, "token": {token}}
	if callback != "" {
		q.Set("cb", callback)
	}
	return authURL + "?" + q.Encode()
}

// GetSession trades an approved token for a session key. The username is
// looked up afterwards; if that lookup fails the session is still good and
// the name is "unknown".
func (c *Client) GetSession(token string) (username, sessionKey string, err error) {
	if err := c.api.LoginWithToken(token); err != nil {
		return "", "", fmt.Errorf("get session: %w", err)
	}
	sessionKey = c.api.GetSessionKey()
	c.SetSessionKey(sessionKey)

	info, err := c.api.User.GetInfo(nil)
	if err != nil {
		return "unknown", sessionKey, nil //nolint:nilerr // username is cosmetic
	}
	return info.Name, sessionKey, nil
}

func (c *Client) UpdateNowPlaying(track ScrobbleTrack) error {
	if !c.authenticated() {
		return ErrNotAuthenticated
	}
	if _, err := c.api.Track.UpdateNowPlaying(track.params(false)); err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

func (c *Client) Scrobble(track ScrobbleTrack) error {
	if !c.authenticated() {
		return ErrNotAuthenticated
	}
	if _, err := c.api.Track.Scrobble(track.params(true)); err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}

// ScrobbleBatch submits up to MaxBatch tracks in one request. Extra
// tracks are ignored.
func (c *Client) ScrobbleBatch(tracks []ScrobbleTrack) error {
	if !c.authenticated() {
		return ErrNotAuthenticated
	}
	if len(tracks) == 0 {
		return nil
	}
	if _, err := c.api.Track.Scrobble(batchParams(tracks)); err != nil {
		return fmt.Errorf("batch scrobble: %w", err)
	}
	return nil
}

// params omits album and duration when unknown, which Last.fm prefers
// over empty values.
func (s ScrobbleTrack) params(withTimestamp bool) lastfm.P {
	p := lastfm.P{"artist": s.Artist, "track": s.Track}
	if withTimestamp {
		p["timestamp"] = s.Timestamp.Unix()
	}
	if s.Album != "" {
		p["album"] = s.Album
	}
	if s.Duration > 0 {
		p["duration"] = int(s.Duration.Seconds())
	}
	return p
}

// batchParams uses the array form lastfm-go expands into artist[i] and
// the like.
func batchParams(tracks []ScrobbleTrack) lastfm.P {
	tracks = tracks[:min(len(tracks), MaxBatch)]
	return lastfm.P{
		"artist":    lo.Map(tracks, func(t ScrobbleTrack, _ int) string { return t.Artist }),
		"track":     lo.Map(tracks, func(t ScrobbleTrack, _ int) string { return t.Track }),
		"timestamp": lo.Map(tracks, func(t ScrobbleTrack, _ int) int64 { return t.Timestamp.Unix() }),
		"album":     lo.Map(tracks, func(t ScrobbleTrack, _ int) string { return t.Album }),
		"duration":  lo.Map(tracks, func(t ScrobbleTrack, _ int) int { return int(t.Duration.Seconds()) }),
	}
}
