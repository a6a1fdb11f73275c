// Package cli holds the autotrack command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autotrack/config"
	"github.com/autotrack/logging"
)

// Version is set at build time
var Version = "dev"

// app is what PersistentPreRunE prepares for every command
type app struct {
	configPath string
	envFile    string
	settings   *config.Settings
	logger     *slog.Logger
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"log-format":  "log_format",
	"headless":    "headless",
	"concurrency": "concurrent_process",
	"prompts":     "prompts_file",
	"work-dir":    "work_dir",
	"data-dir":    "data_dir",
	"run-at":      "service.run_at",
	"http-addr":   "service.http_addr",
	"grpc-port":   "service.grpc_port",
	"auto-update": "service.auto_update",
}

// NewRootCommand builds the full command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "autotrack",
		Short:         "Generate, publish and monetize tracks once a day",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./autotrack.yaml when present)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newRunCommand(a),
		newServiceCommand(a),
		newSessionCommand(a),
		newHistoryCommand(a),
		newUpdateCommand(a),
	)
	return root
}

// Execute runs the command tree and exits non-zero on error
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	v := config.NewViper()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	if err := config.ReadFile(v, a.configPath); err != nil {
		return err
	}

	settings, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := logging.Setup(settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}

	a.settings = settings
	a.logger = logger
	return nil
}

// bindFlags lets flags that were set override file and environment values
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}
