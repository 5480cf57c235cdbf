package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/barflysocial/bar-match-relay/internal/client"
	"github.com/barflysocial/bar-match-relay/internal/relay"
	"github.com/barflysocial/bar-match-relay/internal/ui"
)

var guestCmd = &cobra.Command{
	Use:   "guest [payload]",
	Short: "Join a room as guest and submit one payload",
	Long: `Join a room as guest and submit a JSON payload to its hosts. The payload
is read from the argument, or from stdin when the argument is missing or "-".

Examples:
  barrelay guest --bar b1 --session s1 '{"song":"Wonderwall"}'
  echo '{"x":1}' | barrelay guest -b b1 -s s1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		conn, err := joinRoom(cmd.Context(), relay.RoleGuest)
		if err != nil {
			return err
		}
		defer conn.Close()

		return submit(cmd.Context(), conn, payload)
	},
}

func readPayload(args []string, stdin io.Reader) (json.RawMessage, error) {
	var data []byte
	if len(args) == 1 && args[0] != "-" {
		data = []byte(args[0])
	} else {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		data = b
	}

	payload := json.RawMessage(bytes.TrimSpace(data))
	if len(payload) == 0 {
		return nil, fmt.Errorf("no payload given")
	}
	if !json.Valid(payload) {
		return nil, client.NewError("read payload", client.ErrInvalidPayload)
	}
	return payload, nil
}

func submit(ctx context.Context, conn *ConnectionContext, payload json.RawMessage) error {
	var sp *ui.SimpleSpinner
	if !flagPlain {
		sp = ui.RunWaitingSpinner("Submitting payload...")
		defer sp.Stop()
	}

	start := time.Now()
	if err := conn.Client.Submit(payload); err != nil {
		return err
	}

	ackCtx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()
	if err := conn.Handler.WaitAck(ackCtx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if flagPlain {
		fmt.Printf("submit_ack %s %s\n", conn.Room.Key, elapsed.Round(time.Millisecond))
		return nil
	}

	sp.Stop()
	fmt.Println(conn.Room.View())
	fmt.Println()
	ui.RenderSubmitSummary("Submission", ui.SubmitSummary{
		Status:  ui.IconSuccess + " Delivered",
		Room:    conn.Room.Key,
		Bytes:   len(payload),
		Elapsed: elapsed.Round(time.Millisecond).String(),
	})
	return nil
}

func init() {
	addRoomFlags(guestCmd)
	rootCmd.AddCommand(guestCmd)
}
