package relay

import (
	"fmt"
	"strings"
)

// Role is the part a connection plays inside a room.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// ParseRole maps the wire value of a join's role field to a Role.
// In lenient mode every value other than "host" becomes a guest.
func ParseRole(s string, lenient bool) (Role, error) {
	switch Role(s) {
	case RoleHost:
		return RoleHost, nil
	case RoleGuest:
		return RoleGuest, nil
	}
	if lenient {
		return RoleGuest, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// KeySeparator joins the bar and session parts of a room key.
const KeySeparator = "::"

var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// RoomKey builds the registry key for a bar and session. Colons inside
// either part are escaped, so distinct pairs never share a key.
func RoomKey(barID, session string) string {
	return keyEscaper.Replace(barID) + KeySeparator + keyEscaper.Replace(session)
}

// Room is the membership of one bar session.
// A Room is only touched while its registry shard is locked.
type Room struct {
	Key string

	hosts  map[Peer]struct{}
	guests map[Peer]struct{}
}

func newRoom(key string) *Room {
	return &Room{
		Key:    key,
		hosts:  make(map[Peer]struct{}),
		guests: make(map[Peer]struct{}),
	}
}

func (r *Room) add(p Peer, role Role) {
	if role == RoleHost {
		r.hosts[p] = struct{}{}
		return
	}
	r.guests[p] = struct{}{}
}

// remove drops p from both sets; it is a no-op for a set p was never in.
func (r *Room) remove(p Peer) {
	delete(r.hosts, p)
	delete(r.guests, p)
}

// Empty reports whether the room has no members left.
func (r *Room) Empty() bool {
	return len(r.hosts) == 0 && len(r.guests) == 0
}

// Counts returns the current number of hosts and guests.
func (r *Room) Counts() Counts {
	return Counts{Hosts: len(r.hosts), Guests: len(r.guests)}
}

// HasMember reports whether p is in the room under the given role.
func (r *Room) HasMember(p Peer, role Role) bool {
	if role == RoleHost {
		_, ok := r.hosts[p]
		return ok
	}
	_, ok := r.guests[p]
	return ok
}

func (r *Room) eachHost(fn func(Peer)) {
	for p := range r.hosts {
		fn(p)
	}
}
