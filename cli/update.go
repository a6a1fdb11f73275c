package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autotrack/updater"
)

func newUpdateCommand(a *app) *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace this binary with the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := updater.New(&updater.Config{
				Slug:           a.settings.Service.RepoSlug,
				CheckInterval:  a.settings.Service.UpdateInterval,
				CurrentVersion: Version,
			}, a.logger)

			release, available, err := u.CheckForUpdate(cmd.Context())
			if err != nil {
				return err
			}
			if !available {
				fmt.Fprintf(cmd.OutOrStdout(), "autotrack %s is up to date\n", Version)
				return nil
			}
			if checkOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "update available: %s (current %s)\n", release.Version(), Version)
				return nil
			}
			if err := u.Update(cmd.Context(), release); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated to %s; restart the service to use it\n", release.Version())
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update exists")
	return cmd
}
