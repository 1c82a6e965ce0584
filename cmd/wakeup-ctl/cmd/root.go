package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wakeup-call/internal/config"
	"github.com/oshokin/wakeup-call/internal/service/common"
	"github.com/oshokin/wakeup-call/internal/version"
)

var (
	// serverAddress of the wakeup daemon control API.
	serverAddress string

	// rootCmd represents the base command for controlling the wakeup daemon.
	rootCmd = &cobra.Command{
		Use:   "wakeup-ctl",
		Short: "Control a running wakeup daemon.",
		Long: `Talks to the control API of a running wakeup daemon.

Subcommands arm and disarm the alarm, dismiss a ringing alarm, deliver wake
signals, drive podcast playback, preview alarm tones and stream the daemon's
event feed. The daemon address can be overridden with the --server flag.`,
	}
)

// Execute runs the wakeup-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", config.DefaultListenAddress, "address of the wakeup daemon")

	rootCmd.AddCommand(statusCmd, enableCmd, disableCmd, dismissCmd, wakeCmd, previewCmd, podcastCmd, watchCmd)
}

// withClient wraps a subcommand body with signal handling and a connected
// control API client that is closed when the body returns.
func withClient(run func(ctx context.Context, c *common.Client, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		client, err := common.NewClient(serverAddress)
		if err != nil {
			return err
		}

		defer func() {
			_ = client.Close()
		}()

		return run(ctx, client, cmd, args)
	}
}
