package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"taskhive/contract"
	domain "taskhive/domain/realtime"
	"taskhive/errors"
)

// Sessions drives the lifecycle of every admitted connection: registration,
// rehydration, room commands and teardown. It is the composition point of
// the registry, the router and the durable store, and the only component
// that looks at a connection's kind.
type Sessions struct {
	registry      contract.IRegistry
	router        contract.IRouter
	store         contract.IRoomStore
	subscriptions contract.ISubscriptions
	log           *slog.Logger
}

func NewSessions(log *slog.Logger, registry contract.IRegistry, router contract.IRouter,
	store contract.IRoomStore, subscriptions contract.ISubscriptions) *Sessions {
	return &Sessions{
		registry:      registry,
		router:        router,
		store:         store,
		subscriptions: subscriptions,
		log:           log,
	}
}

// Connect admits an authenticated connection. User connections are
// registered and rehydrated before the connection is considered ready; the
// personal room is joined unconditionally so identity-addressed events reach
// every device even before any explicit subscription exists. Worker
// connections hold no state at all: nothing to register, nothing to
// rehydrate.
func (s *Sessions) Connect(ctx context.Context, kind domain.ConnectionKind, sink contract.EventSink) {
	identity, ok := kind.Identity()
	if !ok {
		s.log.Info("Worker channel active", "connection_id", sink.ID())
		return
	}

	s.registry.Register(identity, sink)
	s.router.Join(domain.PersonalRoom(identity), sink)
	s.rehydrate(ctx, identity, sink)
}

// rehydrate rejoins the connection to every durably subscribed room. This is
// a pure rejoin: it never writes back to the store. A store failure here is
// logged and swallowed; the connection comes up with its personal room only
// and recovers its subscriptions on the next reconnect once the store is
// back. If the connection drops mid-rehydration the loop is abandoned;
// partially joined rooms are harmless because the handle is about to be
// dropped from every room anyway.
func (s *Sessions) rehydrate(ctx context.Context, identity domain.Identity, sink contract.EventSink) {
	rooms, err := s.store.ListRooms(ctx, identity)
	if err != nil {
		s.log.Warn("Rehydration skipped, durable store unavailable",
			"identity", identity,
			"connection_id", sink.ID(),
			"error", err)
		return
	}

	for _, room := range rooms {
		if ctx.Err() != nil {
			s.log.Debug("Rehydration abandoned, connection gone",
				"identity", identity, "connection_id", sink.ID())
			return
		}
		s.router.Join(room, sink)
	}
	s.log.Debug("Rehydration complete",
		"identity", identity,
		"connection_id", sink.ID(),
		"rooms", len(rooms))
}

// Disconnect tears down the in-process traces of a connection. The durable
// store is deliberately untouched: a disconnect is not an unsubscribe, and
// the identity's rooms must still rejoin on the next connection.
func (s *Sessions) Disconnect(kind domain.ConnectionKind, sink contract.EventSink) {
	identity, ok := kind.Identity()
	if !ok {
		s.log.Info("Worker channel closed", "connection_id", sink.ID())
		return
	}

	s.registry.Unregister(identity, sink)
	s.router.Drop(sink)
}

// Subscribe handles an inbound subscribe command. Worker connections have no
// business here: they address rooms directly through the bridge.
func (s *Sessions) Subscribe(ctx context.Context, kind domain.ConnectionKind,
	sink contract.EventSink, room domain.Room) error {
	identity, ok := kind.Identity()
	if !ok {
		return fmt.Errorf("%w: subscribe from worker connection", errors.ErrUnknownCommand)
	}
	s.subscriptions.Subscribe(ctx, identity, sink, room)
	return nil
}

// Unsubscribe handles an inbound unsubscribe command, the only path that
// removes a durable subscription.
func (s *Sessions) Unsubscribe(ctx context.Context, kind domain.ConnectionKind,
	sink contract.EventSink, room domain.Room) error {
	identity, ok := kind.Identity()
	if !ok {
		return fmt.Errorf("%w: unsubscribe from worker connection", errors.ErrUnknownCommand)
	}
	s.subscriptions.Unsubscribe(ctx, identity, sink, room)
	return nil
}

// Publish is the single write path handed to every producer: REST handlers
// announcing a CRUD outcome and the worker bridge pushing job results.
func (s *Sessions) Publish(room domain.Room, name string, payload json.RawMessage) {
	s.router.Publish(room, name, payload)
}
