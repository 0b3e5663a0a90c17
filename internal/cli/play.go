package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/app"
	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/playlist"
	"github.com/llehouerou/riptide/internal/ui/nowplaying"
)

type playOptions struct {
	shuffle bool
	repeat  string
}

func (e *env) playCmd() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play music from the server",
		Long: `Loads an album, a playlist, your liked songs or search results as the
queue and plays it in the now-playing view.`,
	}
	cmd.PersistentFlags().BoolVarP(&opts.shuffle, "shuffle", "s", false, "Start with shuffle on")
	cmd.PersistentFlags().StringVarP(&opts.repeat, "repeat", "r", "off", "Repeat mode: off, all or one")

	source := func(kind app.SourceKind) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return e.play(cmd, app.Source{Kind: kind, Ref: strings.Join(args, " ")}, opts)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "album <id>",
			Short: "Play an album",
			Args:  cobra.ExactArgs(1),
			RunE:  source(app.SourceAlbum),
		},
		&cobra.Command{
			Use:   "playlist <id>",
			Short: "Play a playlist",
			Args:  cobra.ExactArgs(1),
			RunE:  source(app.SourcePlaylist),
		},
		&cobra.Command{
			Use:   "liked",
			Short: "Play your liked songs",
			Args:  cobra.NoArgs,
			RunE:  source(app.SourceLiked),
		},
		&cobra.Command{
			Use:   "track <query>",
			Short: "Search tracks and play the results",
			Args:  cobra.MinimumNArgs(1),
			RunE:  source(app.SourceSearch),
		},
	)
	return cmd
}

func (e *env) play(cmd *cobra.Command, src app.Source, opts playOptions) error {
	repeat, err := parseRepeat(opts.repeat)
	if err != nil {
		return err
	}

	a, err := app.New(e.cfg, e.store, append([]app.Option{app.WithLogger(e.logger)}, e.appOpts...)...)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}

	err = e.runSession(cmd, a, src, opts.shuffle, repeat)
	if cerr := a.Close(); cerr != nil {
		e.logger.Warn("shutdown", "err", cerr)
	}
	return err
}

func (e *env) runSession(cmd *cobra.Command, a *app.App, src app.Source, shuffle bool, repeat playlist.RepeatMode) error {
	applyModes(a.Playback, shuffle, repeat)

	name, err := a.Start(cmd.Context(), src)
	if err != nil {
		return errors.New(errmsg.FormatWith(sourceOp(src.Kind), src.Ref, err))
	}

	pb := e.cfg.GetPlaybackConfig()
	return e.runUI(nowplaying.New(a.Playback, name, pb.SeekOffset))
}

// applyModes sets the modes through the toggles the service exposes.
func applyModes(svc playback.Service, shuffle bool, repeat playlist.RepeatMode) {
	if svc.Snapshot().Shuffle != shuffle {
		svc.ToggleShuffle()
	}
	for range 3 {
		if svc.Snapshot().RepeatMode == repeat {
			return
		}
		svc.ToggleRepeat()
	}
}

func parseRepeat(s string) (playlist.RepeatMode, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return playlist.RepeatOff, nil
	case "all":
		return playlist.RepeatAll, nil
	case "one":
		return playlist.RepeatOne, nil
	}
	return playlist.RepeatOff, fmt.Errorf("invalid repeat mode %q (want off, all or one)", s)
}

func sourceOp(kind app.SourceKind) errmsg.Op {
	switch kind {
	case app.SourceAlbum:
		return errmsg.OpAlbumLoad
	case app.SourcePlaylist:
		return errmsg.OpPlaylistLoad
	case app.SourceLiked:
		return errmsg.OpLikedLoad
	}
	return errmsg.OpPlaybackStart
}
