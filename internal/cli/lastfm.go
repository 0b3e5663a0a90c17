package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/lastfm"
)

// ErrLastfmNotConfigured is returned when [lastfm] api_key or api_secret is missing.
var ErrLastfmNotConfigured = errors.New("no Last.fm credentials: set [lastfm] api_key and api_secret")

func (e *env) lastfmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lastfm",
		Short: "Manage Last.fm scrobbling",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "link",
			Short: "Authorize riptide to scrobble to your Last.fm account",
			Args:  cobra.NoArgs,
			RunE:  e.lastfmLink,
		},
		&cobra.Command{
			Use:   "unlink",
			Short: "Forget the Last.fm session and queued scrobbles",
			Args:  cobra.NoArgs,
			RunE:  e.lastfmUnlink,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether an account is linked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				status, err := e.lastfmStatus()
				if err != nil {
					return errors.New(errmsg.Format(errmsg.OpSettingsLoad, err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Last.fm: %s\n", status)
				return nil
			},
		},
	)
	return cmd
}

func (e *env) lastfmLink(cmd *cobra.Command, _ []string) error {
	if !e.cfg.HasLastfmConfig() {
		return ErrLastfmNotConfigured
	}
	out := cmd.OutOrStdout()
	client := e.authorizer(e.cfg.Lastfm.APIKey, e.cfg.Lastfm.APISecret)

	open := func(url string) error {
		fmt.Fprintf(out, "Opening %s\nWaiting for authorization...\n", url)
		return e.openBrowser(url)
	}
	username, key, err := lastfm.Link(cmd.Context(), client, e.linkAddr, open)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpLastfmLink, err))
	}
	if err := e.store.SaveLastfmSession(username, key); err != nil {
		return errors.New(errmsg.Format(errmsg.OpSettingsSave, err))
	}
	e.logger.Info("lastfm linked", "user", username)
	fmt.Fprintf(out, "Linked as %s\n", username)
	return nil
}

func (e *env) lastfmUnlink(cmd *cobra.Command, _ []string) error {
	if err := e.store.DeleteLastfmSession(); err != nil {
		return errors.New(errmsg.Format(errmsg.OpSettingsSave, err))
	}
	if err := e.store.ClearPendingScrobbles(); err != nil {
		return errors.New(errmsg.Format(errmsg.OpSettingsSave, err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Last.fm account unlinked")
	return nil
}
