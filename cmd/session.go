package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/barflysocial/bar-match-relay/internal/client"
	"github.com/barflysocial/bar-match-relay/internal/relay"
	"github.com/barflysocial/bar-match-relay/internal/ui"
)

const defaultRelayURL = "ws://localhost:8080/ws"

var (
	flagURL     string
	flagBar     string
	flagSession string
	flagTimeout time.Duration
	flagPlain   bool
)

// addRoomFlags registers the flags every room command shares.
func addRoomFlags(cmd *cobra.Command) {
	url := os.Getenv("RELAY_URL")
	if url == "" {
		url = defaultRelayURL
	}
	cmd.Flags().StringVarP(&flagURL, "url", "u", url, "Relay WebSocket URL (env RELAY_URL)")
	cmd.Flags().StringVarP(&flagBar, "bar", "b", "", "Bar identifier")
	cmd.Flags().StringVarP(&flagSession, "session", "s", "", "Session identifier")
	cmd.Flags().DurationVarP(&flagTimeout, "timeout", "t", 10*time.Second, "How long to wait for the relay to answer")
	cmd.Flags().BoolVar(&flagPlain, "plain", false, "Print plain lines instead of the interactive view")
	cmd.MarkFlagRequired("bar")
	cmd.MarkFlagRequired("session")
}

// ConnectionContext is a joined relay connection.
type ConnectionContext struct {
	Client  *client.Client
	Handler *client.Handler
	Room    ui.RoomInfo
}

// joinRoom dials the relay and joins the room from the flags under role.
func joinRoom(ctx context.Context, role relay.Role) (*ConnectionContext, error) {
	dialCtx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	var sp *ui.SimpleSpinner
	if !flagPlain {
		sp = ui.RunConnectionSpinner("Connecting to relay...")
		defer sp.Stop()
	}

	c := client.NewClient(flagURL)
	if err := c.Connect(dialCtx); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", flagURL, err)
	}

	h := client.NewHandler(c)
	go h.Start()

	if sp != nil {
		sp.UpdateMessage("Joining room...")
	}
	if err := c.Join(role, flagBar, flagSession); err != nil {
		c.Close()
		return nil, err
	}
	key, err := h.WaitJoined(dialCtx)
	if err != nil {
		c.Close()
		return nil, err
	}

	return &ConnectionContext{
		Client:  c,
		Handler: h,
		Room: ui.RoomInfo{
			BarID:   flagBar,
			Session: flagSession,
			Key:     key,
			Role:    string(role),
		},
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
