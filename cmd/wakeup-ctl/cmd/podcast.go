package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/wakeup-call/internal/service/common"
)

// podcastCmd drives podcast playback on the daemon.
var podcastCmd = &cobra.Command{
	Use:   "podcast <play|pause|refresh>",
	Short: "Control podcast playback.",
	Long: `Sends a playback control to the daemon's podcast player.

play resumes or starts the latest episode, pause suspends playback and
refresh re-resolves the feed so the next play picks up a newer episode.`,
	Args: cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, args []string) error {
		if err := client.Podcast(ctx, args[0]); err != nil {
			return err
		}

		status, err := client.Status(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if status.Podcast.EpisodeURL != "" {
			fmt.Fprintf(out, "Podcast is %s (%s).\n", status.Podcast.State, status.Podcast.EpisodeURL)
		} else {
			fmt.Fprintf(out, "Podcast is %s.\n", status.Podcast.State)
		}

		return nil
	}),
}
