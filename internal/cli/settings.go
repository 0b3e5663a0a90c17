package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/state"
)

const maxDownloadDelay = 10 * time.Second

func (e *env) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show saved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.showSettings(cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(e.delayCmd())
	return cmd
}

func (e *env) delayCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "delay [ms]",
		Short: "Show or set the buffering delay before playback starts",
		Long: `The delay lets the stream settle before playing so the first second
of a track is not skipped. Accepts milliseconds or a duration such as 1.5s.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case reset:
				if err := e.store.DeleteSetting(state.KeyDownloadDelay); err != nil {
					return errors.New(errmsg.Format(errmsg.OpSettingsSave, err))
				}
			case len(args) == 1:
				d, err := parseDelay(args[0])
				if err != nil {
					return err
				}
				if err := e.store.SaveDownloadDelay(d); err != nil {
					return errors.New(errmsg.Format(errmsg.OpSettingsSave, err))
				}
			}
			d, source, err := e.downloadDelay()
			if err != nil {
				return errors.New(errmsg.Format(errmsg.OpSettingsLoad, err))
			}
			fmt.Fprintf(out, "Download delay: %s (%s)\n", formatMillis(d), source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Forget the saved delay and use the config value")
	return cmd
}

// downloadDelay returns the effective delay and where it comes from.
func (e *env) downloadDelay() (time.Duration, string, error) {
	d, ok, err := e.store.GetDownloadDelay()
	if err != nil {
		return 0, "", err
	}
	if ok {
		return d, "saved", nil
	}
	return e.cfg.GetPlaybackConfig().DownloadDelay, "config", nil
}

func parseDelay(s string) (time.Duration, error) {
	var d time.Duration
	if ms, err := strconv.Atoi(s); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("invalid delay %q", s)
	}
	if d < 0 || d > maxDownloadDelay {
		return 0, fmt.Errorf("delay must be between 0 and %s", formatMillis(maxDownloadDelay))
	}
	return d.Round(time.Millisecond), nil
}

func formatMillis(d time.Duration) string {
	return humanize.Comma(d.Milliseconds()) + " ms"
}

func (e *env) showSettings(out io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	row := func(label, value string) {
		t.AppendRow(table.Row{label, value})
	}

	server := "not configured"
	if e.cfg.HasServerConfig() {
		server = e.cfg.Server.BaseURL
		if e.cfg.Server.Username != "" {
			server += " as " + e.cfg.Server.Username
		}
	}
	row("Server", server)

	token, err := e.store.GetAuthToken()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpSettingsLoad, err))
	}
	row("Signed in", yesNo(token != ""))

	d, source, err := e.downloadDelay()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpSettingsLoad, err))
	}
	row("Download delay", fmt.Sprintf("%s (%s)", formatMillis(d), source))

	volume := e.cfg.GetPlaybackConfig().Volume
	if v, ok, err := e.store.GetVolume(); err == nil && ok {
		volume = v
	}
	row("Volume", fmt.Sprintf("%d%%", int(volume*100+0.5)))

	lastfm, err := e.lastfmStatus()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpSettingsLoad, err))
	}
	row("Last.fm", lastfm)

	pending, err := e.store.CountPendingScrobbles()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpSettingsLoad, err))
	}
	if pending > 0 {
		row("Queued scrobbles", humanize.Comma(int64(pending)))
	}

	t.Render()
	return nil
}

func (e *env) lastfmStatus() (string, error) {
	if !e.cfg.HasLastfmConfig() {
		return "not configured", nil
	}
	sess, err := e.store.GetLastfmSession()
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "not linked", nil
	}
	return fmt.Sprintf("linked as %s (%s)", sess.Username, humanize.Time(sess.LinkedAt)), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
