package relay

import "errors"

// Reasons a message is dropped. None of these is ever reported back to the
// sending connection; they exist for logs and metrics.
var (
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrMissingJoinFields = errors.New("join requires role, barId and session")
	ErrUnknownRole       = errors.New("unknown role")
	ErrAlreadyJoined     = errors.New("connection already joined a room")
	ErrNotJoined         = errors.New("connection has not joined a room")
	ErrRoomGone          = errors.New("room no longer exists")
	ErrUnknownType       = errors.New("unknown message type")
	ErrSessionClosed     = errors.New("session closed")
)

// DropReason maps a dispatch error to a short label for metrics.
func DropReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedFrame):
		return "malformed"
	case errors.Is(err, ErrMissingJoinFields):
		return "missing_fields"
	case errors.Is(err, ErrUnknownRole):
		return "unknown_role"
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, ErrNotJoined):
		return "not_joined"
	case errors.Is(err, ErrRoomGone):
		return "room_gone"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrSessionClosed):
		return "closed"
	default:
		return "other"
	}
}
