package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/riptide/internal/artwork"
	"github.com/llehouerou/riptide/internal/config"
	"github.com/llehouerou/riptide/internal/mediasession"
	"github.com/llehouerou/riptide/internal/notify"
	"github.com/llehouerou/riptide/internal/player"
	"github.com/llehouerou/riptide/internal/state"
)

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok", "token_type": "bearer"})
		case "/albums/3":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 3, "name": "LP", "artists": []string{"A"},
				"tracks": []map[string]any{
					{"id": 10, "title": "One", "duration": 180},
					{"id": 11, "title": "Two", "duration": 200},
				},
			})
		case "/albums/4":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 4, "name": "Empty", "tracks": []any{}})
		case "/playback/start":
			_ = json.NewEncoder(w).Encode(map[string]any{"play_history_id": 1})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recordingNotifier struct {
	mu    sync.Mutex
	title []string
}

func (r *recordingNotifier) Notify(n notify.Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title = append(r.title, n.Title)
	return uint32(len(r.title)), nil
}

func (r *recordingNotifier) Close(uint32) error { return nil }

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.title...)
}

type nopSurface struct{}

func (nopSurface) SetMetadata(mediasession.Metadata)                    {}
func (nopSurface) SetStatus(mediasession.Status)                        {}
func (nopSurface) SetHandler(mediasession.Action, mediasession.Handler) {}

func openStore(t *testing.T) *state.Manager {
	t.Helper()
	store, err := state.OpenPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestApp(t *testing.T, cfg *config.Config, store state.Store, opts ...Option) (*App, *player.Mock) {
	t.Helper()
	covers, err := artwork.New(filepath.Join(t.TempDir(), "art"))
	require.NoError(t, err)

	sink := player.NewMock()
	opts = append([]Option{WithSink(sink), WithSurface(nopSurface{}), WithArtworkCache(covers)}, opts...)
	a, err := New(cfg, store, opts...)
	require.NoError(t, err)
	return a, sink
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: baseURL, Username: "me", Password: "pw"},
	}
}

func TestNew_RequiresServer(t *testing.T) {
	_, err := New(&config.Config{}, openStore(t))
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestApp_StartAlbumLoadsStream(t *testing.T) {
	srv := backend(t)
	notifier := &recordingNotifier{}
	cfg := testConfig(srv.URL)
	cfg.Notifications.Enabled = true

	store := openStore(t)
	a, sink := newTestApp(t, cfg, store, WithNotifier(notifier))

	name, err := a.Start(context.Background(), Source{Kind: SourceAlbum, Ref: "3"})
	require.NoError(t, err)
	assert.Equal(t, "LP", name)

	require.Eventually(t, func() bool { return len(sink.Loads()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, strings.HasPrefix(sink.Loads()[0].URL, srv.URL+"/music/stream/10?token=tok"))

	require.Eventually(t, func() bool { return len(notifier.titles()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "One", notifier.titles()[0])

	assert.Len(t, a.Playback.Queue(), 2)

	require.NoError(t, a.Close())

	token, err := store.GetAuthToken()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestApp_StartEmptySource(t *testing.T) {
	srv := backend(t)
	a, _ := newTestApp(t, testConfig(srv.URL), openStore(t))
	defer a.Close()

	_, err := a.Start(context.Background(), Source{Kind: SourceAlbum, Ref: "4"})
	assert.ErrorIs(t, err, ErrEmptySource)

	_, _, err = a.Tracks(context.Background(), Source{Kind: "radio"})
	assert.Error(t, err)
}

func TestApp_SavedSettingsWin(t *testing.T) {
	srv := backend(t)
	store := state.NewMock()
	require.NoError(t, store.SaveVolume(0.3))

	cfg := testConfig(srv.URL)
	v := 0.9
	cfg.Playback.Volume = &v
	a, sink := newTestApp(t, cfg, store)

	assert.InDelta(t, 0.3, sink.Volume(), 1e-9)
	assert.InDelta(t, 0.3, a.Playback.Snapshot().Volume, 1e-9)

	a.Playback.SetVolume(0.6)
	require.Eventually(t, func() bool {
		got, ok, _ := store.GetVolume()
		return ok && got == 0.6
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
}

func TestApp_CloseJoinsErrors(t *testing.T) {
	srv := backend(t)
	store := state.NewMock()
	a, _ := newTestApp(t, testConfig(srv.URL), store)
	require.NoError(t, store.Close())

	err := a.Close()
	require.ErrorIs(t, err, state.ErrClosed)
	assert.False(t, errors.Is(err, ErrNoServer))
}
