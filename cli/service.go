package cli

import (
	"fmt"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/autotrack/server"
	"github.com/autotrack/service"
	"github.com/autotrack/updater"
)

func newServiceCommand(a *app) *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:       "service <install|uninstall|start|stop|restart|status|run>",
		Short:     "Manage the daily OS service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: service.Commands,
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			if !slices.Contains(service.Commands, action) {
				return fmt.Errorf("unknown service command: %s (valid: %v)", action, service.Commands)
			}

			prg := &service.Program{
				RunAt:      a.settings.Service.RunAt,
				RunOnStart: runOnStart,
				Logger:     a.logger,
				GRPCPort:   a.settings.Service.GRPCPort,
			}

			if action == "run" {
				st, err := buildStack(a.settings, a.logger)
				if err != nil {
					return err
				}
				defer st.Close()

				status := server.StatusConfig{
					Addr:     a.settings.Service.HTTPAddr,
					Version:  Version,
					Status:   st.runner,
					Gatherer: prometheus.DefaultGatherer,
				}
				if st.history != nil {
					status.History = st.history
				}

				prg.Runner = st.runner
				prg.HTTP = server.NewStatusServer(status, a.logger)
				prg.GRPC = server.NewGRPCServer(a.logger)
				if a.settings.Service.AutoUpdate {
					prg.Updater = updater.New(&updater.Config{
						Slug:           a.settings.Service.RepoSlug,
						CheckInterval:  a.settings.Service.UpdateInterval,
						CurrentVersion: Version,
					}, a.logger)
				}
			}

			mgr, err := service.NewManager(prg, a.configPath)
			if err != nil {
				return err
			}
			return service.RunServiceCommand(action, mgr, a.logger)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&runOnStart, "run-now", false, "also run a cycle as soon as the service starts")
	f.String("run-at", "", "daily start time HH:MM (overrides service.run_at)")
	f.String("http-addr", "", "status HTTP address")
	f.String("grpc-port", "", "gRPC health port")
	f.Bool("auto-update", false, "apply new releases automatically")
	f.Bool("headless", true, "run the browsers headless")
	return cmd
}
