package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"taskhive/contract"
	domain "taskhive/domain/realtime"
)

// Subscriptions mediates subscribe/unsubscribe for user connections. The
// transport-level join or leave always happens first and synchronously, so
// live delivery for the current connection is never held hostage by the
// store. The durable write behind it runs off the command path with a
// timeout: if it fails, the failure is logged and the in-memory membership
// stands; only rehydration after a future reconnect is impaired.
//
// Durable writes for one identity apply in command order: a subscribe
// followed by an unsubscribe of the same room must never leave the add
// landing after the remove, or the store would resurrect a subscription the
// user explicitly dropped. Writes for different identities stay independent,
// so a slow store call for one user never stalls another.
type Subscriptions struct {
	router       contract.IRouter
	store        contract.IRoomStore
	log          *slog.Logger
	writeTimeout time.Duration

	mu   sync.Mutex
	tail map[domain.Identity]chan struct{}
}

func NewSubscriptions(log *slog.Logger, router contract.IRouter,
	store contract.IRoomStore, writeTimeout time.Duration) *Subscriptions {
	return &Subscriptions{
		router:       router,
		store:        store,
		log:          log,
		writeTimeout: writeTimeout,
		tail:         make(map[domain.Identity]chan struct{}),
	}
}

// Subscribe joins the connection to the room and records the durable
// (identity, room) pair. Subscribing twice to the same room is a no-op
// beyond the durable write.
func (s *Subscriptions) Subscribe(ctx context.Context, identity domain.Identity,
	sink contract.EventSink, room domain.Room) {
	s.router.Join(room, sink)

	s.enqueueWrite(ctx, identity, func(writeCtx context.Context) {
		if err := s.store.AddRoom(writeCtx, identity, room); err != nil {
			s.log.Warn("Durable subscription write lost, membership is memory-only",
				"identity", identity,
				"room", room,
				"error", err)
		}
	})
}

// Unsubscribe leaves the room and removes the durable record. This is the
// only path that removes a durable subscription: a plain disconnect leaves
// it in place on purpose, so the next connection of the identity rejoins.
func (s *Subscriptions) Unsubscribe(ctx context.Context, identity domain.Identity,
	sink contract.EventSink, room domain.Room) {
	s.router.Leave(room, sink)

	s.enqueueWrite(ctx, identity, func(writeCtx context.Context) {
		if err := s.store.RemoveRoom(writeCtx, identity, room); err != nil {
			s.log.Warn("Durable subscription removal lost, room may rejoin on reconnect",
				"identity", identity,
				"room", room,
				"error", err)
		}
	})
}

// enqueueWrite runs the durable write on its own goroutine, chained behind
// the identity's previous in-flight write so per-identity order is the
// command order. The chain entry is dropped once the last write drains, so
// idle identities hold no state here.
func (s *Subscriptions) enqueueWrite(ctx context.Context, identity domain.Identity,
	write func(ctx context.Context)) {
	done := make(chan struct{})
	s.mu.Lock()
	prev := s.tail[identity]
	s.tail[identity] = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
		defer cancel()
		write(writeCtx)

		s.mu.Lock()
		if s.tail[identity] == done {
			delete(s.tail, identity)
		}
		s.mu.Unlock()
	}()
}
