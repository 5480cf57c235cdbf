package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barflysocial/bar-match-relay/internal/client"
	"github.com/barflysocial/bar-match-relay/internal/relay"
	"github.com/barflysocial/bar-match-relay/internal/ui"
)

var flagKeep int

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Join a room as host and watch incoming payloads",
	Long: `Join a room as host. Membership counts and every payload submitted by
guests of the room are shown until you quit.

Examples:
  barrelay host --bar b1 --session s1
  barrelay host -b b1 -s s1 --plain | jq .`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := joinRoom(cmd.Context(), relay.RoleHost)
		if err != nil {
			return err
		}
		defer conn.Close()

		if flagPlain {
			return watchPlain(cmd.Context(), conn.Handler)
		}
		return watchMonitor(cmd.Context(), conn)
	},
}

// watchPlain prints one line per event: stats as a comment, payloads raw.
func watchPlain(ctx context.Context, h *client.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-h.Stats:
			if !ok {
				return client.NewError("watch", client.ErrConnectionClosed)
			}
			fmt.Printf("# hosts=%d guests=%d\n", s.Hosts, s.Guests)
		case p, ok := <-h.Payloads:
			if !ok {
				return client.NewError("watch", client.ErrConnectionClosed)
			}
			fmt.Println(string(p))
		}
	}
}

func watchMonitor(ctx context.Context, conn *ConnectionContext) error {
	monitor := ui.NewMonitorUI(conn.Room, flagKeep)
	monitor.Start()
	defer monitor.Stop()

	h := conn.Handler
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-monitor.Done():
			return nil
		case s, ok := <-h.Stats:
			if !ok {
				return client.NewError("watch", client.ErrConnectionClosed)
			}
			monitor.UpdateStats(s.Hosts, s.Guests)
			monitor.SetState(fmt.Sprintf("Listening on %s", conn.Room.Key))
		case p, ok := <-h.Payloads:
			if !ok {
				return client.NewError("watch", client.ErrConnectionClosed)
			}
			monitor.AddPayload(p)
		}
	}
}

func init() {
	addRoomFlags(hostCmd)
	hostCmd.Flags().IntVar(&flagKeep, "keep", 10, "Recent payloads to keep on screen")
	rootCmd.AddCommand(hostCmd)
}
