package artwork

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/llehouerou/riptide/internal/mediasession"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func coverServer(t *testing.T, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "art"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestCache_DownloadsOnceAndReuses(t *testing.T) {
	srv, hits := coverServer(t, pngBytes(t, 32, 32))
	c := newTestCache(t)
	art := mediasession.Artwork{URL: srv.URL + "/music/cover/1?size=512&token=a", Size: 512}

	path, err := c.Path(context.Background(), art)
	if err != nil {
		t.Fatalf("Path() error: %v", err)
	}
	if filepath.Dir(path) != c.Dir() {
		t.Errorf("path %q outside cache dir %q", path, c.Dir())
	}

	// A new token must hit the same entry
	art.URL = srv.URL + "/music/cover/1?size=512&token=b"
	again, err := c.Path(context.Background(), art)
	if err != nil {
		t.Fatalf("Path() error: %v", err)
	}
	if again != path {
		t.Errorf("second path = %q, want %q", again, path)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestCache_ScalesLargeCovers(t *testing.T) {
	srv, _ := coverServer(t, pngBytes(t, 1024, 768))
	c := newTestCache(t)

	path, err := c.Path(context.Background(), mediasession.Artwork{URL: srv.URL + "/big"})
	if err != nil {
		t.Fatalf("Path() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode cached file: %v", err)
	}
	if cfg.Width != maxEdge || cfg.Height != 384 {
		t.Errorf("cached size = %dx%d, want %dx384", cfg.Width, cfg.Height, maxEdge)
	}
}

func TestCache_Errors(t *testing.T) {
	srv, _ := coverServer(t, []byte("not an image"))
	c := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Path(ctx, mediasession.Artwork{}); !errors.Is(err, ErrNoArtwork) {
		t.Errorf("empty URL error = %v, want ErrNoArtwork", err)
	}
	if _, err := c.Path(ctx, mediasession.Artwork{URL: srv.URL + "/missing"}); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := c.Path(ctx, mediasession.Artwork{URL: srv.URL + "/garbage"}); err == nil {
		t.Error("expected decode error")
	}

	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("cache holds %d files after failures, want 0", len(entries))
	}
}

func TestCache_FileURL(t *testing.T) {
	srv, _ := coverServer(t, pngBytes(t, 8, 8))
	c := newTestCache(t)

	got := c.FileURL(mediasession.Artwork{URL: srv.URL + "/cover"})
	if !strings.HasPrefix(got, "file://") {
		t.Fatalf("FileURL() = %q, want file:// URL", got)
	}
	if _, err := os.Stat(strings.TrimPrefix(got, "file://")); err != nil {
		t.Errorf("cached file missing: %v", err)
	}

	if got := c.FileURL(mediasession.Artwork{URL: srv.URL + "/missing"}); got != "" {
		t.Errorf("FileURL() on failure = %q, want empty", got)
	}
}

func TestCache_Prune(t *testing.T) {
	c := newTestCache(t)

	oldFile := filepath.Join(c.Dir(), "old.png")
	newFile := filepath.Join(c.Dir(), "new.png")
	for _, p := range []string{oldFile, newFile} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	c.prune(24 * time.Hour)

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("old entry should be pruned")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Error("recent entry should be kept")
	}
}
