// Package cli implements the riptide command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/app"
	"github.com/llehouerou/riptide/internal/config"
	"github.com/llehouerou/riptide/internal/icons"
	"github.com/llehouerou/riptide/internal/lastfm"
	"github.com/llehouerou/riptide/internal/logging"
	"github.com/llehouerou/riptide/internal/state"
	"github.com/llehouerou/riptide/internal/stderr"
)

// Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

// env carries what the commands share once the root has run its setup.
type env struct {
	cfgPath   string
	statePath string

	cfg     *config.Config
	store   *state.Manager
	logger  *slog.Logger
	logFile *os.File

	appOpts     []app.Option
	runUI       func(tea.Model) error
	openBrowser func(url string) error
	authorizer  func(apiKey, apiSecret string) lastfm.Authorizer
	linkAddr    string
}

func newEnv() *env {
	return &env{
		runUI:       runProgram,
		openBrowser: lastfm.OpenBrowser,
		authorizer: func(key, secret string) lastfm.Authorizer {
			return lastfm.New(key, secret)
		},
		linkAddr:    lastfm.AuthCallbackAddr,
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newEnv().rootCmd()
}

func (e *env) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "riptide",
		Short: "Terminal player for a self-hosted music server",
		Long: `riptide streams albums, playlists and liked songs from a self-hosted
music server, reports listening history back to it and exposes media
controls to the desktop.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.setup,
	}

	cmd.PersistentFlags().StringVarP(&e.cfgPath, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/riptide/config.toml, then ./config.toml)")
	cmd.PersistentFlags().StringVar(&e.statePath, "state", "", "state database (default: $XDG_DATA_HOME/riptide/riptide.db)")

	cmd.AddCommand(
		e.playCmd(),
		e.settingsCmd(),
		e.lastfmCmd(),
		versionCmd(),
	)
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := newEnv()
	err := e.rootCmd().ExecuteContext(ctx)
	if cerr := e.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (e *env) setup(_ *cobra.Command, _ []string) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg

	e.logger, e.logFile, err = logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(e.logger)

	icons.Init(cfg.UI.Icons)

	if e.statePath != "" {
		e.store, err = state.OpenPath(e.statePath)
	} else {
		e.store, err = state.Open()
	}
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	return nil
}

func (e *env) loadConfig() (*config.Config, error) {
	if e.cfgPath == "" {
		return config.Load()
	}
	if _, err := os.Stat(e.cfgPath); err != nil {
		return nil, err
	}
	return config.LoadFiles(e.cfgPath)
}

// close releases what setup opened. It is safe when setup never ran.
func (e *env) close() error {
	var errs []error
	if e.store != nil {
		errs = append(errs, e.store.Close())
		e.store = nil
	}
	if e.logFile != nil {
		errs = append(errs, e.logFile.Close())
		e.logFile = nil
	}
	return errors.Join(errs...)
}

// runProgram shows the model full screen. Library output written to
// stderr would tear the view, so it is sent to the log meanwhile.
func runProgram(m tea.Model) error {
	if c, err := stderr.Start(slog.Default()); err != nil {
		slog.Warn("stderr capture unavailable", "err", err)
	} else {
		defer c.Stop()
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// No config or state needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "riptide %s (%s)\n", Version, Commit)
}
