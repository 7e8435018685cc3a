package realtime

import (
	"encoding/json"
	"fmt"

	"taskhive/errors"
)

// Identity is the opaque user identifier supplied by the auth layer at
// handshake time. It never changes for the lifetime of a connection.
type Identity string

// RoomKind partitions the room namespace. Rooms have no lifecycle of their
// own; a room exists whenever a connection or a durable record references it.
type RoomKind string

const (
	KindProject   RoomKind = "project"
	KindTask      RoomKind = "task"
	KindUser      RoomKind = "user"
	KindWorkspace RoomKind = "workspace"
)

// Room is a named broadcast group, formatted as "<kind>:<entityId>".
type Room string

// NewRoom builds a room name from a kind and an entity ID. The kind must be
// one of the known partitions; subscribe commands carrying anything else are
// rejected before they reach the engine.
func NewRoom(kind RoomKind, entityID string) (Room, error) {
	switch kind {
	case KindProject, KindTask, KindUser, KindWorkspace:
		return Room(fmt.Sprintf("%s:%s", kind, entityID)), nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownRoomKind, kind)
	}
}

// PersonalRoom is the per-user room every connection of an identity joins
// unconditionally, so identity-addressed events (notifications, invites)
// reach all of a user's devices without any explicit subscription.
func PersonalRoom(identity Identity) Room {
	return Room(fmt.Sprintf("%s:%s", KindUser, identity))
}

// Event is the outbound envelope fanned out to every connection joined to
// Room. Payload is kept raw: the engine routes events, it does not interpret
// them.
type Event struct {
	Room    Room            `json:"room"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionKind tags a connection at handshake time as either an ordinary
// user connection or a privileged worker channel. The tag is decided exactly
// once and carried immutably with the connection handle, so downstream code
// switches on the kind instead of probing ad hoc flags.
type ConnectionKind struct {
	worker   bool
	identity Identity
}

// UserKind tags a connection owned by an authenticated user.
func UserKind(identity Identity) ConnectionKind {
	return ConnectionKind{identity: identity}
}

// WorkerKind tags a privileged worker connection. It carries no identity:
// workers are never registered and never subscribe.
func WorkerKind() ConnectionKind {
	return ConnectionKind{worker: true}
}

func (k ConnectionKind) IsWorker() bool { return k.worker }

// Identity returns the owning identity and false for worker connections.
func (k ConnectionKind) Identity() (Identity, bool) {
	if k.worker {
		return "", false
	}
	return k.identity, true
}

func (k ConnectionKind) String() string {
	if k.worker {
		return "worker"
	}
	return fmt.Sprintf("user(%s)", k.identity)
}
