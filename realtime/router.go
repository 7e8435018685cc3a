package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"taskhive/contract"
	domain "taskhive/domain/realtime"
)

// Router owns the transport-level room membership table and is the single
// write path for publishing. Transport membership is authoritative for live
// delivery: Publish never consults the durable store, which only governs
// what gets rejoined on reconnect.
type Router struct {
	mu        sync.RWMutex
	rooms     map[domain.Room]map[string]contract.EventSink
	log       *slog.Logger
	published atomic.Uint64
}

func NewRouter(log *slog.Logger) *Router {
	return &Router{
		rooms: make(map[domain.Room]map[string]contract.EventSink),
		log:   log,
	}
}

// Join adds a connection to a room, creating the room on first use. Joining
// a room the connection is already in is a no-op.
func (r *Router) Join(room domain.Room, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[string]contract.EventSink)
	}
	r.rooms[room][sink.ID()] = sink
}

// Leave removes a connection from a room and deletes the room entry once
// empty. Leaving a room never joined is a no-op.
func (r *Router) Leave(room domain.Room, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(room, sink)
}

func (r *Router) leaveLocked(room domain.Room, sink contract.EventSink) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, sink.ID())
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Drop removes a connection from every room it is joined to. Called on
// disconnect; the durable store is deliberately left untouched so the
// subscription survives the gap until the user reconnects.
func (r *Router) Drop(sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.rooms {
		r.leaveLocked(room, sink)
	}
}

// Publish delivers an event to every connection currently joined to the
// room, across all identities. Fire-and-forget: an empty room drops the
// event, and a sink that cannot keep up loses the event for that connection
// only.
func (r *Router) Publish(room domain.Room, name string, payload json.RawMessage) {
	r.mu.RLock()
	members, ok := r.rooms[room]
	if !ok || len(members) == 0 {
		r.mu.RUnlock()
		return
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for _, sink := range members {
		sinks = append(sinks, sink)
	}
	r.mu.RUnlock()

	evt := domain.Event{Room: room, Name: name, Payload: payload}
	for _, sink := range sinks {
		if err := sink.Consume(context.Background(), evt); err != nil {
			r.log.Warn("Event dropped for slow connection",
				"connection_id", sink.ID(),
				"room", room,
				"event", name,
				"error", err)
		}
	}
	r.published.Add(1)
}

// RoomCount reports the number of rooms with at least one live member.
// Used by the ops stats endpoint.
func (r *Router) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Published reports the total number of events published since startup.
func (r *Router) Published() uint64 {
	return r.published.Load()
}
