package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wakeup-call/internal/config"
	"github.com/oshokin/wakeup-call/internal/service/daemon"
	"github.com/oshokin/wakeup-call/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where alarm state is persisted.
	stateFile string

	// rootCmd represents the base command for running the wakeup daemon.
	rootCmd = &cobra.Command{
		Use:   "wakeup-server [listen-address]",
		Short: "Run the wakeup daemon and its control API.",
		Long: `Starts the wakeup daemon that schedules the alarm, rings it and runs the morning routine.

The daemon listens on the specified address or uses settings from configuration file.
Listen address can be provided as argument to override config (e.g., :8484, 127.0.0.1:8484).
Alarm state is persisted to JSON file for recovery across restarts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &daemon.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StateFile:     stateFile,
			}

			return daemon.Run(ctx, options)
		},
	}
)

// Execute runs the wakeup-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", config.DefaultStateFilename, "path to persist alarm state")
}
