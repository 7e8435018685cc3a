package realtime

import (
	"sync"

	"taskhive/contract"
	domain "taskhive/domain/realtime"
)

// Registry is the process-local map from identity to the set of currently
// live connections for that identity. A user with several tabs or devices
// owns several entries under the same identity; worker connections are never
// registered here at all.
//
// Registry is safe for concurrent use: connect, disconnect and fan-out
// lookups for independent connections interleave freely.
type Registry struct {
	mu          sync.RWMutex
	connections map[domain.Identity]map[string]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[domain.Identity]map[string]contract.EventSink),
	}
}

// Register adds a connection handle under an identity, creating the
// identity's set on first use. Registering the same handle twice is a no-op.
// The new handle is visible to subsequent broadcasts immediately.
func (r *Registry) Register(identity domain.Identity, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[identity]; !ok {
		r.connections[identity] = make(map[string]contract.EventSink)
	}
	r.connections[identity][sink.ID()] = sink
}

// Unregister removes a connection handle and deletes the identity's entry
// once its last connection is gone, so the map never leaks empty sets.
// Unknown identities or handles are a no-op, never an error.
func (r *Registry) Unregister(identity domain.Identity, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles, ok := r.connections[identity]
	if !ok {
		return
	}
	delete(handles, sink.ID())
	if len(handles) == 0 {
		delete(r.connections, identity)
	}
}

// ConnectionsFor returns every live connection of an identity, for fan-out
// to all of a user's devices. Returns nil for an unknown identity.
func (r *Registry) ConnectionsFor(identity domain.Identity) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles, ok := r.connections[identity]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(handles))
	for _, sink := range handles {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Size reports the number of identities with at least one live connection.
// Used by the ops stats endpoint.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
