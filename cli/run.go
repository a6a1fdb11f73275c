package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full cycle now and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := buildStack(a.settings, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = st.runner.RunCycle(ctx)
			return err
		},
	}

	f := cmd.Flags()
	f.Bool("headless", true, "run the browsers headless")
	f.Int("concurrency", 0, "workers per slice (overrides concurrent_process)")
	f.String("prompts", "", "prompt file")
	f.String("work-dir", "", "staging directory for downloaded tracks")
	f.String("data-dir", "", "directory of the cycle history database")
	return cmd
}
