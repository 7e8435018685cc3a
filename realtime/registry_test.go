package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domain "taskhive/domain/realtime"
)

// stubSink is a minimal connection handle for registry and router tests.
type stubSink struct {
	id     string
	events []domain.Event
}

func newStubSink() *stubSink {
	return &stubSink{id: uuid.NewString()}
}

func (s *stubSink) ID() string { return s.id }

func (s *stubSink) Consume(_ context.Context, e domain.Event) error {
	s.events = append(s.events, e)
	return nil
}

func TestRegistry_Register_One_Identity_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := domain.Identity(uuid.NewString())
	sink := newStubSink()

	// Given no connection is registered
	req.Zero(registry.Size())
	req.Nil(registry.ConnectionsFor(identity))

	// When a connection registers
	registry.Register(identity, sink)

	// Then
	req.Equal(1, registry.Size())
	req.Len(registry.ConnectionsFor(identity), 1)
	req.Contains(registry.ConnectionsFor(identity), sink)
}

func TestRegistry_Register_One_Identity_Multiple_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := domain.Identity(uuid.NewString())
	tab := newStubSink()
	phone := newStubSink()

	// When the same user connects from two devices
	registry.Register(identity, tab)
	registry.Register(identity, phone)

	// Then both handles live under one identity
	req.Equal(1, registry.Size())
	req.Len(registry.ConnectionsFor(identity), 2)
	req.Contains(registry.ConnectionsFor(identity), tab)
	req.Contains(registry.ConnectionsFor(identity), phone)
}

func TestRegistry_Register_Twice_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := domain.Identity(uuid.NewString())
	sink := newStubSink()

	registry.Register(identity, sink)
	registry.Register(identity, sink)

	req.Len(registry.ConnectionsFor(identity), 1)
}

func TestRegistry_Unregister_Last_Connection_Removes_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := domain.Identity(uuid.NewString())
	sink := newStubSink()

	// Given a registered connection
	registry.Register(identity, sink)

	// When it unregisters
	registry.Unregister(identity, sink)

	// Then the identity entry is gone entirely
	req.Zero(registry.Size())
	req.Nil(registry.ConnectionsFor(identity))
}

func TestRegistry_Unregister_Keeps_Remaining_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := domain.Identity(uuid.NewString())
	tab := newStubSink()
	phone := newStubSink()

	registry.Register(identity, tab)
	registry.Register(identity, phone)

	// When one device disconnects
	registry.Unregister(identity, tab)

	// Then the other stays reachable
	req.Len(registry.ConnectionsFor(identity), 1)
	req.Contains(registry.ConnectionsFor(identity), phone)
}

func TestRegistry_Unregister_Unknown_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := domain.Identity(uuid.NewString())

	// Unregistering a connection never registered must never fail
	registry.Unregister(identity, newStubSink())

	req.Zero(registry.Size())
}
