package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/oshokin/wakeup-call/internal/api/httpapi"
	"github.com/oshokin/wakeup-call/internal/service/common"
)

// watchCmd streams the daemon event feed to stdout.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream daemon events until interrupted.",
	Long: `Subscribes to the daemon's event feed and prints every event as it arrives.

Events cover alarm changes, firings, ringer transitions, morning routine
stages and audio session hand-offs. Interrupt with Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, client *common.Client, cmd *cobra.Command, _ []string) error {
		conn, response, err := websocket.DefaultDialer.DialContext(ctx, client.EventsURL(), nil)
		if err != nil {
			return fmt.Errorf("dial event feed: %w", err)
		}

		if response != nil && response.Body != nil {
			_ = response.Body.Close()
		}

		// Unblock the read loop when the user interrupts.
		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()

		out := cmd.OutOrStdout()

		for {
			var event httpapi.Event
			if err = conn.ReadJSON(&event); err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return fmt.Errorf("read event: %w", err)
			}

			detail := ""
			if event.Data != nil {
				if raw, marshalErr := json.Marshal(event.Data); marshalErr == nil {
					detail = string(raw)
				}
			}

			fmt.Fprintf(out, "%s  %-14s %s\n", event.At.Local().Format("15:04:05"), event.Kind, detail)
		}
	}),
}
