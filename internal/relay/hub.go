package relay

import (
	"log/slog"

	"github.com/barflysocial/bar-match-relay/internal/metrics"
)

// Peer is a live connection as seen by the hub.
type Peer interface {
	// ID identifies the connection in logs.
	ID() string

	// AttemptSend queues one encoded frame for the connection. It never
	// blocks and reports false when the frame was dropped.
	AttemptSend(frame []byte) bool
}

// Options tunes dispatch policy.
type Options struct {
	// LenientRoles treats any role other than "host" as "guest" instead of
	// dropping the join.
	LenientRoles bool
}

// Hub is the central brain of the relay.
// It owns the room registry and dispatches every inbound message.
type Hub struct {
	registry *Registry
	opts     Options
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewHub creates a Hub over the given registry. m may be nil.
func NewHub(registry *Registry, opts Options, logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	registry.OnLifecycle(m.RoomCreated, m.RoomRemoved)
	return &Hub{
		registry: registry,
		opts:     opts,
		log:      logger,
		metrics:  m,
	}
}

// Registry returns the hub's room registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Attach starts tracking a new connection. The returned Session must be
// closed exactly once, when the transport reports the disconnect.
func (h *Hub) Attach(p Peer) *Session {
	h.metrics.ConnectionOpened()
	h.log.Debug("connection attached", "conn", p.ID())
	return &Session{hub: h, peer: p}
}

// deliver sends one frame and records a failure; failures never propagate.
func (h *Hub) deliver(p Peer, msgType string, frame []byte) {
	if p.AttemptSend(frame) {
		return
	}
	h.metrics.SendFailed(msgType)
	h.log.Debug("send dropped", "conn", p.ID(), "type", msgType)
}

func (h *Hub) deliverMessage(p Peer, msg *Message) {
	frame, err := msg.Encode()
	if err != nil {
		h.log.Error("encode message", "type", msg.Type, "error", err)
		return
	}
	h.deliver(p, msg.Type, frame)
}

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateClosed
)

// Session is the per-connection state machine: unjoined, joined, closed.
// Its methods are called from the connection's single reader goroutine.
type Session struct {
	hub  *Hub
	peer Peer

	state sessionState
	key   string
	role  Role
}

// Key returns the room key of a joined session.
func (s *Session) Key() string { return s.key }

// Role returns the role of a joined session.
func (s *Session) Role() Role { return s.role }

// Joined reports whether the session is currently in a room.
func (s *Session) Joined() bool { return s.state == stateJoined }

// HandleFrame decodes and dispatches one inbound frame. The returned error
// only says why the frame was dropped; nothing is sent back for it.
func (s *Session) HandleFrame(data []byte) error {
	msg, err := DecodeMessage(data)
	if err != nil {
		s.dropped(TypeUnknown, err)
		return err
	}
	return s.Handle(msg)
}

// TypeUnknown labels frames whose type could not be read.
const TypeUnknown = "unknown"

// Handle dispatches one decoded message.
func (s *Session) Handle(msg *Message) error {
	var err error
	switch msg.Type {
	case TypeJoin:
		s.hub.metrics.MessageReceived(TypeJoin)
		err = s.join(msg)
	case TypeSubmitPayload:
		s.hub.metrics.MessageReceived(TypeSubmitPayload)
		err = s.submit(msg)
	default:
		// Unknown types are ignored so newer clients can talk to older
		// servers.
		s.hub.metrics.MessageReceived(TypeUnknown)
		err = ErrUnknownType
	}
	if err != nil {
		s.dropped(msg.Type, err)
	}
	return err
}

func (s *Session) dropped(msgType string, err error) {
	s.hub.metrics.MessageDropped(DropReason(err))
	s.hub.log.Debug("message dropped", "conn", s.peer.ID(), "type", msgType, "error", err)
}

func (s *Session) join(msg *Message) error {
	switch s.state {
	case stateJoined:
		return ErrAlreadyJoined
	case stateClosed:
		return ErrSessionClosed
	}
	if msg.Role == "" || msg.BarID == "" || msg.Session == "" {
		return ErrMissingJoinFields
	}
	role, err := ParseRole(msg.Role, s.hub.opts.LenientRoles)
	if err != nil {
		return err
	}

	key := RoomKey(msg.BarID, msg.Session)
	var counts Counts
	s.hub.registry.Do(key, func(tx *Txn) {
		rm := tx.GetOrCreate()
		rm.add(s.peer, role)
		s.key, s.role, s.state = key, role, stateJoined

		s.hub.deliverMessage(s.peer, joinedMessage(key))

		// Stats go out under the lock so every host sees counts in the
		// order membership changed.
		counts = rm.Counts()
		frame, err := roomStatsMessage(msg.BarID, msg.Session, counts).Encode()
		if err != nil {
			s.hub.log.Error("encode room stats", "key", key, "error", err)
			return
		}
		rm.eachHost(func(p Peer) { s.hub.deliver(p, TypeRoomStats, frame) })
	})

	s.hub.log.Info("peer joined",
		"conn", s.peer.ID(), "key", key, "role", role,
		"hosts", counts.Hosts, "guests", counts.Guests)
	return nil
}

func (s *Session) submit(msg *Message) error {
	switch s.state {
	case stateUnjoined:
		return ErrNotJoined
	case stateClosed:
		return ErrSessionClosed
	}

	var (
		hosts int
		err   error
	)
	frame := encodePayloadReceived(msg.Payload)
	s.hub.registry.Do(s.key, func(tx *Txn) {
		rm, ok := tx.Get()
		if !ok {
			err = ErrRoomGone
			return
		}
		rm.eachHost(func(p Peer) {
			hosts++
			s.hub.deliver(p, TypePayloadReceived, frame)
		})
	})
	if err != nil {
		return err
	}

	s.hub.deliverMessage(s.peer, submitAckMessage())
	s.hub.log.Debug("payload relayed", "conn", s.peer.ID(), "key", s.key, "hosts", hosts, "bytes", len(msg.Payload))
	return nil
}

// Close handles the disconnect. It removes the connection from its room and
// deletes the room once nobody is left. Calling Close again is a no-op.
func (s *Session) Close() {
	if s.state == stateClosed {
		return
	}
	wasJoined := s.state == stateJoined
	s.state = stateClosed
	s.hub.metrics.ConnectionClosed()

	if !wasJoined {
		s.hub.log.Debug("connection detached", "conn", s.peer.ID())
		return
	}

	deleted := false
	s.hub.registry.Do(s.key, func(tx *Txn) {
		rm, ok := tx.Get()
		if !ok {
			return
		}
		rm.remove(s.peer)
		if rm.Empty() {
			tx.Remove()
			deleted = true
		}
	})

	s.hub.log.Info("peer left", "conn", s.peer.ID(), "key", s.key, "role", s.role)
	if deleted {
		s.hub.log.Info("room deleted", "key", s.key)
	}
}
