package client

import (
	"context"
	"encoding/json"

	"github.com/barflysocial/bar-match-relay/internal/relay"
)

// RoomStats is a room_stats update received by a host.
type RoomStats struct {
	BarID   string
	Session string
	Hosts   int
	Guests  int
}

// Handler routes incoming relay messages to typed channels.
//
// Consumers must drain every channel their role can receive: joined, then
// stats and payloads for hosts, acks for guests.
type Handler struct {
	client   *Client
	Joined   chan string
	Stats    chan RoomStats
	Payloads chan json.RawMessage
	Acks     chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:   client,
		Joined:   make(chan string, 1),
		Stats:    make(chan RoomStats, 16),
		Payloads: make(chan json.RawMessage, 64),
		Acks:     make(chan struct{}, 16),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection ends, after closing every channel.
func (h *Handler) Start() {
	defer h.close()

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case relay.TypeJoined:
			h.Joined <- msg.Key

		case relay.TypeRoomStats:
			h.handleRoomStats(msg)

		case relay.TypePayloadReceived:
			h.Payloads <- msg.Payload

		case relay.TypeSubmitAck:
			h.Acks <- struct{}{}

		default:
			// Newer servers may send types this client does not know.
		}
	}
}

func (h *Handler) handleRoomStats(msg *Message) {
	stats := RoomStats{BarID: msg.BarID, Session: msg.Session}
	if msg.Counts != nil {
		stats.Hosts = msg.Counts.Hosts
		stats.Guests = msg.Counts.Guests
	}
	h.Stats <- stats
}

func (h *Handler) close() {
	close(h.Joined)
	close(h.Stats)
	close(h.Payloads)
	close(h.Acks)
}

// WaitJoined blocks until the server acknowledges the join.
func (h *Handler) WaitJoined(ctx context.Context) (string, error) {
	select {
	case key, ok := <-h.Joined:
		if !ok {
			return "", NewError("join", ErrConnectionClosed)
		}
		return key, nil
	case <-ctx.Done():
		return "", WrapError("join", ErrTimeout, "no joined acknowledgment from the relay")
	}
}

// WaitAck blocks until the server acknowledges a submitted payload.
func (h *Handler) WaitAck(ctx context.Context) error {
	select {
	case _, ok := <-h.Acks:
		if !ok {
			return NewError("submit", ErrConnectionClosed)
		}
		return nil
	case <-ctx.Done():
		return WrapError("submit", ErrTimeout, "no submit_ack from the relay")
	}
}
