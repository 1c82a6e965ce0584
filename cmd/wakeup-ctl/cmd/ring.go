package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/wakeup-call/internal/service/common"
)

// errNoPendingTrigger is returned when a wake signal is requested while
// no alarm is armed, so there is no trigger identity to deliver.
var errNoPendingTrigger = errors.New("no alarm is armed, nothing to wake")

var (
	// dismissCmd stops a ringing alarm and starts the morning routine.
	dismissCmd = &cobra.Command{
		Use:   "dismiss",
		Short: "Dismiss the ringing alarm and start the morning routine.",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, _ []string) error {
			if err := client.Dismiss(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Alarm dismissed, morning routine started.")

			return nil
		}),
	}

	// wakeCmd delivers a wake signal for a registered trigger.
	wakeCmd = &cobra.Command{
		Use:   "wake [trigger-id]",
		Short: "Deliver a wake signal for the pending trigger.",
		Long: `Delivers a wake signal carrying a trigger identity, as an external helper would.

When the trigger identity is omitted, the pending trigger is looked up first.
A signal for a trigger that already fired is folded into that firing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, args []string) error {
			var triggerID string
			if len(args) > 0 {
				triggerID = args[0]
			} else {
				status, err := client.Status(ctx)
				if err != nil {
					return err
				}

				if status.Pending == nil {
					return errNoPendingTrigger
				}

				triggerID = status.Pending.ID
			}

			accepted, err := client.Wake(ctx, triggerID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if accepted {
				fmt.Fprintln(out, "Wake signal accepted, alarm is ringing.")
			} else {
				fmt.Fprintln(out, "Wake signal folded into an earlier firing.")
			}

			return nil
		}),
	}

	// previewCmd plays one cycle of an alarm tone.
	previewCmd = &cobra.Command{
		Use:   "preview <sound>",
		Short: "Play one cycle of an alarm tone.",
		Long: `Plays a single cycle of the named alarm tone through the daemon's audio output.

Valid tones are classic, chime, pulse and silent. Preview is refused while
the alarm is ringing.`,
		Args: cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, args []string) error {
			if err := client.Preview(ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Previewing %s.\n", args[0])

			return nil
		}),
	}
)
