package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Backend connection
	Server ServerConfig `koanf:"server"`

	// Playback tuning
	Playback PlaybackConfig `koanf:"playback"`

	// Last.fm scrobbling (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	// Desktop notifications on track change
	Notifications NotificationsConfig `koanf:"notifications"`

	Log LogConfig `koanf:"log"`

	UI UIConfig `koanf:"ui"`
}

// ServerConfig holds the streaming backend address and credentials.
type ServerConfig struct {
	BaseURL     string `koanf:"base_url"`     // e.g., "http://localhost:8000"
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	PasswordEnv string `koanf:"password_env"` // environment variable holding the password
}

// PlaybackConfig holds playback tuning. Zero values mean "use the default".
type PlaybackConfig struct {
	DownloadDelayMS         int      `koanf:"download_delay_ms"`         // buffering stabilization before play (default: 1100)
	StabilizeSteps          int      `koanf:"stabilize_steps"`           // position resets during stabilization (1-20, default: 4)
	HeartbeatSeconds        int      `koanf:"heartbeat_seconds"`         // history update interval (default: 15)
	CompletionThreshold     float64  `koanf:"completion_threshold"`      // fraction counted as a full listen (0.0-1.0, default: 0.8)
	RestartThresholdSeconds float64  `koanf:"restart_threshold_seconds"` // "previous" restarts after this (default: 3)
	SeekOffsetSeconds       int      `koanf:"seek_offset_seconds"`       // media key seek step (default: 10)
	Volume                  *float64 `koanf:"volume"`                    // initial volume (0.0-1.0, default: 1.0)
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// NotificationsConfig controls desktop notifications.
type NotificationsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `koanf:"level"` // "debug", "info", "warn", "error" (default: "info")
	File  string `koanf:"file"`  // default: daily file under the XDG state dir
}

// UIConfig controls the terminal view.
type UIConfig struct {
	Icons string `koanf:"icons"` // "nerd", "unicode", "none" (default: "unicode")
}

func Load() (*Config, error) {
	return LoadFiles(getConfigPaths()...)
}

// LoadFiles loads the given files in order (last wins), skipping missing ones.
func LoadFiles(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		Log: LogConfig{Level: "info"},
		UI:  UIConfig{Icons: "unicode"},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Normalize base URL (remove trailing slash)
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")

	// Expand ~ in log file
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/riptide/config.toml
		filepath.Join(xdg.ConfigHome, "riptide", "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// ResolvePassword returns the configured password, preferring the environment
// variable named by password_env.
func (s ServerConfig) ResolvePassword() string {
	if s.PasswordEnv != "" {
		if v := os.Getenv(s.PasswordEnv); v != "" {
			return v
		}
	}
	return s.Password
}

// HasServerConfig returns true if a backend is configured.
func (c *Config) HasServerConfig() bool {
	return c.Server.BaseURL != ""
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// Playback holds resolved playback settings.
type Playback struct {
	DownloadDelay       time.Duration
	StabilizeSteps      int
	Heartbeat           time.Duration
	CompletionThreshold float64
	RestartThreshold    time.Duration
	SeekOffset          time.Duration
	Volume              float64
}

// GetPlaybackConfig returns the playback configuration with defaults applied.
func (c *Config) GetPlaybackConfig() Playback {
	cfg := c.Playback

	// Apply defaults
	if cfg.DownloadDelayMS <= 0 {
		cfg.DownloadDelayMS = 1100
	}
	if cfg.StabilizeSteps <= 0 || cfg.StabilizeSteps > 20 {
		cfg.StabilizeSteps = 4
	}
	if cfg.HeartbeatSeconds <= 0 {
		cfg.HeartbeatSeconds = 15
	}
	if cfg.CompletionThreshold <= 0 || cfg.CompletionThreshold > 1 {
		cfg.CompletionThreshold = 0.8
	}
	if cfg.RestartThresholdSeconds <= 0 {
		cfg.RestartThresholdSeconds = 3
	}
	if cfg.SeekOffsetSeconds <= 0 {
		cfg.SeekOffsetSeconds = 10
	}
	volume := 1.0
	if cfg.Volume != nil && *cfg.Volume >= 0 && *cfg.Volume <= 1 {
		volume = *cfg.Volume
	}

	return Playback{
		DownloadDelay:       time.Duration(cfg.DownloadDelayMS) * time.Millisecond,
		StabilizeSteps:      cfg.StabilizeSteps,
		Heartbeat:           time.Duration(cfg.HeartbeatSeconds) * time.Second,
		CompletionThreshold: cfg.CompletionThreshold,
		RestartThreshold:    time.Duration(cfg.RestartThresholdSeconds * float64(time.Second)),
		SeekOffset:          time.Duration(cfg.SeekOffsetSeconds) * time.Second,
		Volume:              volume,
	}
}
