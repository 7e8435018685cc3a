package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"taskhive/errors"
)

// unreachableClient points at a port nothing listens on, so every call
// fails fast with a connectivity error.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRoomStore_Flips_To_Degraded_After_Failure_Ceiling(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(unreachableClient(), slog.Default(), 3)
	ctx := context.Background()

	// Given three consecutive connectivity failures
	for i := 0; i < 3; i++ {
		req.False(store.Degraded())
		err := store.AddRoom(ctx, "u1", "project:77")
		req.Error(err)
		req.NotErrorIs(err, errors.ErrStoreDegraded)
	}

	// Then the store short-circuits instead of dialing again
	req.True(store.Degraded())
	req.ErrorIs(store.AddRoom(ctx, "u1", "project:77"), errors.ErrStoreDegraded)
	req.ErrorIs(store.RemoveRoom(ctx, "u1", "project:77"), errors.ErrStoreDegraded)
	_, err := store.ListRooms(ctx, "u1")
	req.ErrorIs(err, errors.ErrStoreDegraded)
}

func TestRoomStore_MarkHealthy_Restores_Normal_Operation(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(unreachableClient(), slog.Default(), 1)
	ctx := context.Background()

	req.Error(store.AddRoom(ctx, "u1", "project:77"))
	req.True(store.Degraded())

	// When the probe clears the flag, calls hit Redis again. Nothing is
	// listening, so they fail with the real error, not the short-circuit.
	store.MarkHealthy()
	req.False(store.Degraded())
	err := store.AddRoom(ctx, "u1", "project:77")
	req.Error(err)
	req.NotErrorIs(err, errors.ErrStoreDegraded)
}

func TestRoomStore_Ping_Bypasses_Degraded_Short_Circuit(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(unreachableClient(), slog.Default(), 1)

	req.Error(store.AddRoom(context.Background(), "u1", "project:77"))
	req.True(store.Degraded())

	// Ping still dials, so the probe can detect recovery
	err := store.Ping(context.Background())
	req.Error(err)
	req.NotErrorIs(err, errors.ErrStoreDegraded)
}
