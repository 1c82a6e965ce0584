package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/service/common"
)

// fireAtLayout formats trigger fire times for humans.
const fireAtLayout = "Mon, 02 Jan 2006 15:04:05 MST"

var (
	// statusCmd prints the daemon's aggregate state.
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show alarm, ringer and morning routine state.",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, _ []string) error {
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), status)

			return nil
		}),
	}

	// enableCmd arms the alarm for a wall-clock time.
	enableCmd = &cobra.Command{
		Use:   "enable <HH:MM> [sound]",
		Short: "Arm the alarm for the given wall-clock time.",
		Long: `Arms the alarm for the given wall-clock time in 24-hour notation.

If the time has already passed today, the alarm is scheduled for tomorrow.
The optional sound argument picks the alarm tone (classic, chime, pulse or
silent); when omitted, the previously chosen tone is kept.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, args []string) error {
			var sound string
			if len(args) > 1 {
				sound = args[1]
			}

			status, err := client.EnableAlarm(ctx, args[0], sound)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Alarm set for %s (%s).\n", status.Settings.Time.String(), status.Settings.Sound)

			if status.Pending != nil {
				fmt.Fprintf(out, "Next firing at %s.\n", status.Pending.FireAt.Local().Format(fireAtLayout))
			}

			return nil
		}),
	}

	// disableCmd disarms the alarm.
	disableCmd = &cobra.Command{
		Use:   "disable",
		Short: "Disarm the alarm.",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, _ []string) error {
			if _, err := client.DisableAlarm(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Alarm disabled.")

			return nil
		}),
	}
)

// printStatus renders the aggregate daemon state as key-value lines.
func printStatus(out io.Writer, status *wake.Status) {
	if status.Settings.Enabled {
		fmt.Fprintf(out, "Alarm:   on at %s (%s)\n", status.Settings.Time.String(), status.Settings.Sound)
	} else {
		fmt.Fprintln(out, "Alarm:   off")
	}

	if status.Pending != nil {
		fmt.Fprintf(out, "Pending: fires %s (trigger %s)\n",
			status.Pending.FireAt.Local().Format(fireAtLayout), status.Pending.ID)
	}

	fmt.Fprintf(out, "Ringer:  %s\n", status.Ringer)
	fmt.Fprintf(out, "Routine: %s\n", status.Stage)

	if status.StageErr != "" {
		fmt.Fprintf(out, "Routine error: %s\n", status.StageErr)
	}

	fmt.Fprintf(out, "Audio:   %s\n", status.AudioOwner)

	if status.Podcast.EpisodeURL != "" {
		fmt.Fprintf(out, "Podcast: %s (%s)\n", status.Podcast.State, status.Podcast.EpisodeURL)
	} else {
		fmt.Fprintf(out, "Podcast: %s\n", status.Podcast.State)
	}
}
