package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	domain "taskhive/domain/realtime"
	"taskhive/errors"
)

// RoomStore persists the (identity, room) subscription sets in Redis, one
// set per identity. It is the only state shared across process restarts:
// the key is written on subscribe, removed on explicit unsubscribe, and read
// back on every new connection to rehydrate room membership.
//
// Every call can fail with a connectivity error. The store counts
// consecutive failures; once the ceiling is reached it flips to degraded and
// calls short-circuit instead of stacking network timeouts. The probe worker
// pings Redis with bounded exponential backoff and clears the flag when
// connectivity returns.
type RoomStore struct {
	rdb      *redis.Client
	log      *slog.Logger
	ceiling  int32
	failures atomic.Int32
	degraded atomic.Bool
}

func NewRoomStore(rdb *redis.Client, log *slog.Logger, failureCeiling int) *RoomStore {
	if failureCeiling <= 0 {
		failureCeiling = 1
	}
	return &RoomStore{rdb: rdb, log: log, ceiling: int32(failureCeiling)}
}

// roomsKey formats the per-identity set key, e.g. "rooms:u1".
func roomsKey(identity domain.Identity) string {
	return fmt.Sprintf("rooms:%s", identity)
}

func (r *RoomStore) AddRoom(ctx context.Context, identity domain.Identity, room domain.Room) error {
	if r.degraded.Load() {
		return errors.ErrStoreDegraded
	}
	if err := r.rdb.SAdd(ctx, roomsKey(identity), string(room)).Err(); err != nil {
		r.markFailure()
		return fmt.Errorf("adding room %q for %q: %w", room, identity, err)
	}
	r.markSuccess()
	return nil
}

func (r *RoomStore) RemoveRoom(ctx context.Context, identity domain.Identity, room domain.Room) error {
	if r.degraded.Load() {
		return errors.ErrStoreDegraded
	}
	if err := r.rdb.SRem(ctx, roomsKey(identity), string(room)).Err(); err != nil {
		r.markFailure()
		return fmt.Errorf("removing room %q for %q: %w", room, identity, err)
	}
	r.markSuccess()
	return nil
}

func (r *RoomStore) ListRooms(ctx context.Context, identity domain.Identity) ([]domain.Room, error) {
	if r.degraded.Load() {
		return nil, errors.ErrStoreDegraded
	}
	members, err := r.rdb.SMembers(ctx, roomsKey(identity)).Result()
	if err != nil {
		r.markFailure()
		return nil, fmt.Errorf("listing rooms for %q: %w", identity, err)
	}
	r.markSuccess()
	return lo.Map(members, func(m string, _ int) domain.Room {
		return domain.Room(m)
	}), nil
}

// Ping checks connectivity directly against Redis, bypassing the degraded
// short-circuit. Used by the probe worker to detect recovery.
func (r *RoomStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RoomStore) Degraded() bool { return r.degraded.Load() }

// MarkHealthy clears the degraded flag and the failure count once the probe
// sees Redis again.
func (r *RoomStore) MarkHealthy() {
	r.failures.Store(0)
	if r.degraded.CompareAndSwap(true, false) {
		r.log.Info("Durable room store recovered")
	}
}

func (r *RoomStore) markSuccess() {
	r.failures.Store(0)
}

func (r *RoomStore) markFailure() {
	if r.failures.Add(1) >= r.ceiling {
		if r.degraded.CompareAndSwap(false, true) {
			r.log.Warn("Durable room store degraded, running memory-only",
				"consecutive_failures", r.failures.Load())
		}
	}
}
