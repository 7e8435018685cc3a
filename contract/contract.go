//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"encoding/json"
	"reflect"

	"taskhive/domain/realtime"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the engine's non-owning handle on a live connection. The
// transport layer owns the socket; the engine only pushes events at it.
// Consume must not block the caller: a sink whose client cannot keep up
// drops the event for that connection only.
type EventSink interface {
	ID() string
	Consume(ctx context.Context, e realtime.Event) error
}

// IRegistry tracks the live connections of each identity for the lifetime of
// the process. Operations on unknown identities or connections are no-ops.
type IRegistry interface {
	Register(identity realtime.Identity, sink EventSink)
	Unregister(identity realtime.Identity, sink EventSink)
	ConnectionsFor(identity realtime.Identity) []EventSink
}

// IRouter is the transport-level room membership table and the single write
// path for fan-out. Join/Leave take effect synchronously; Publish delivers
// to every sink currently joined and drops the event if the room is empty.
type IRouter interface {
	Join(room realtime.Room, sink EventSink)
	Leave(room realtime.Room, sink EventSink)
	Drop(sink EventSink)
	Publish(room realtime.Room, name string, payload json.RawMessage)
}

// IRoomStore is the durable (identity, room) set store shared across process
// restarts. Every call may fail with a connectivity error; callers treat
// failures as best-effort degradation, never as fatal.
type IRoomStore interface {
	AddRoom(ctx context.Context, identity realtime.Identity, room realtime.Room) error
	RemoveRoom(ctx context.Context, identity realtime.Identity, room realtime.Room) error
	ListRooms(ctx context.Context, identity realtime.Identity) ([]realtime.Room, error)
}

// ISubscriptions mediates the only two externally triggerable membership
// mutations for user connections. The transport join is authoritative and
// synchronous; the durable write behind it is asynchronous and best-effort.
type ISubscriptions interface {
	Subscribe(ctx context.Context, identity realtime.Identity, sink EventSink, room realtime.Room)
	Unsubscribe(ctx context.Context, identity realtime.Identity, sink EventSink, room realtime.Room)
}

// IRealtime is the facade the transport layer drives: connection lifecycle,
// room commands and worker job results.
type IRealtime interface {
	Connect(ctx context.Context, kind realtime.ConnectionKind, sink EventSink)
	Disconnect(kind realtime.ConnectionKind, sink EventSink)
	Subscribe(ctx context.Context, kind realtime.ConnectionKind, sink EventSink, room realtime.Room) error
	Unsubscribe(ctx context.Context, kind realtime.ConnectionKind, sink EventSink, room realtime.Room) error
	Publish(room realtime.Room, name string, payload json.RawMessage)
}
