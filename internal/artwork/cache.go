// Package artwork keeps local copies of remote cover images so desktop
// shells and notification daemons can load them from disk.
package artwork

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder for covers
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/nfnt/resize"

	"github.com/llehouerou/riptide/internal/mediasession"
)

const (
	cacheDirName   = "riptide/artwork"
	cacheMaxAge    = 30 * 24 * time.Hour
	maxEdge        = 512
	maxDownload    = 10 << 20
	defaultTimeout = 10 * time.Second
)

// ErrNoArtwork is returned when there is nothing to fetch.
var ErrNoArtwork = errors.New("no artwork")

// Cache downloads covers, scales them down and stores them as PNG files.
type Cache struct {
	dir    string
	http   *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]*fetch
}

type fetch struct {
	done chan struct{}
	path string
	err  error
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(cache *Cache) { cache.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cache *Cache) {
		if l != nil {
			cache.logger = l
		}
	}
}

// New creates a cache under dir, or under the XDG cache home when dir is
// empty. Entries unused for 30 days are pruned in the background.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, cacheDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artwork cache: %w", err)
	}

	c := &Cache{
		dir:      dir,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default(),
		inflight: make(map[string]*fetch),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.prune(cacheMaxAge)

	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// cacheKey ignores the token query parameter so a refreshed token does not
// invalidate the cache.
func cacheKey(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		q.Del("token")
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}
	hash := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}

// Path returns the local file for art, downloading it on first use.
// Concurrent requests for the same cover share one download.
func (c *Cache) Path(ctx context.Context, art mediasession.Artwork) (string, error) {
	if art.URL == "" {
		return "", ErrNoArtwork
	}
	key := cacheKey(art.URL)
	path := filepath.Join(c.dir, key+".png")

	if _, err := os.Stat(path); err == nil {
		now := time.Now()
		_ = os.Chtimes(path, now, now) //nolint:errcheck // best-effort
		return path, nil
	}

	c.mu.Lock()
	if f, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.path, f.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f := &fetch{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	f.path, f.err = c.download(ctx, art.URL, path)
	close(f.done)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	return f.path, f.err
}

// FileURL returns a file:// URL for art, or "" when it cannot be cached.
// Its signature matches mpris.ArtLocalizer.
func (c *Cache) FileURL(art mediasession.Artwork) string {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	path, err := c.Path(ctx, art)
	if err != nil {
		if !errors.Is(err, ErrNoArtwork) {
			c.logger.Debug("cache artwork", "err", err)
		}
		return ""
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}

func (c *Cache) download(ctx context.Context, rawURL, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build artwork request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch artwork: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return "", fmt.Errorf("read artwork: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode artwork: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = resize.Thumbnail(maxEdge, maxEdge, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode artwork: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(c.dir, "art-*.tmp")
	if err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write artwork: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write artwork: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write artwork: %w", err)
	}
	return path, nil
}

// prune removes entries not used within maxAge.
func (c *Cache) prune(maxAge time.Duration) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(c.dir, entry.Name())) //nolint:errcheck // best-effort cleanup
		}
	}
}
