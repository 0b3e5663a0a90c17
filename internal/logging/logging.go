// Package logging sets up the process logger. Logs go to a file because
// stdout belongs to the terminal UI.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/llehouerou/riptide/internal/config"
)

// Setup opens the log file named by cfg, or a daily file under the XDG
// state directory, and returns a text logger writing to it. The caller
// closes the file.
func Setup(cfg config.LogConfig) (*slog.Logger, *os.File, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	path := cfg.File
	if path == "" {
		path, err = xdg.StateFile(filepath.Join("riptide", DailyName(time.Now())))
		if err != nil {
			return nil, nil, fmt.Errorf("state dir: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(handler), f, nil
}

// DailyName is the default log file name for day t.
func DailyName(t time.Time) string {
	return fmt.Sprintf("riptide-%s.log", t.Format("20060102"))
}

// ParseLevel maps a config level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
