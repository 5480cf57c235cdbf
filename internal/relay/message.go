package relay

import (
	"encoding/json"
	"fmt"
)

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) relay messages.
type Message struct {
	Type string `json:"type"`

	// join
	Role    string `json:"role,omitempty"`
	BarID   string `json:"barId,omitempty"`
	Session string `json:"session,omitempty"`

	// joined
	Key string `json:"key,omitempty"`

	// submit_payload / payload_received. Kept raw so the payload reaches
	// hosts exactly as the guest sent it.
	Payload json.RawMessage `json:"payload,omitempty"`

	// room_stats. Nil for every other type, which drops the fields from
	// the encoded object.
	*Counts
}

// Counts is the membership of a room at one instant.
type Counts struct {
	Hosts  int `json:"hosts"`
	Guests int `json:"guests"`
}

// Message type constants.
const (
	TypeJoin          = "join"
	TypeSubmitPayload = "submit_payload"

	TypeJoined          = "joined"
	TypeRoomStats       = "room_stats"
	TypePayloadReceived = "payload_received"
	TypeSubmitAck       = "submit_ack"
)

// DecodeMessage parses one inbound frame.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &msg, nil
}

// Encode renders a message as one outbound frame.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func joinedMessage(key string) *Message {
	return &Message{Type: TypeJoined, Key: key}
}

func roomStatsMessage(barID, session string, c Counts) *Message {
	return &Message{Type: TypeRoomStats, BarID: barID, Session: session, Counts: &c}
}

var payloadReceivedPrefix = []byte(`{"type":"` + TypePayloadReceived + `","payload":`)

// encodePayloadReceived builds the payload_received frame around the raw
// payload bytes, which json.Marshal would otherwise compact and re-escape.
func encodePayloadReceived(payload json.RawMessage) []byte {
	if len(payload) == 0 {
		return []byte(`{"type":"` + TypePayloadReceived + `"}`)
	}
	frame := make([]byte, 0, len(payloadReceivedPrefix)+len(payload)+1)
	frame = append(frame, payloadReceivedPrefix...)
	frame = append(frame, payload...)
	return append(frame, '}')
}

func submitAckMessage() *Message {
	return &Message{Type: TypeSubmitAck}
}
