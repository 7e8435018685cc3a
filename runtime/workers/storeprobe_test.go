package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStore flips from failing to healthy after a set number of pings.
type fakeStore struct {
	pings     atomic.Int32
	failUntil int32
	degraded  atomic.Bool
	recovered chan struct{}
}

func (f *fakeStore) Ping(context.Context) error {
	if f.pings.Add(1) <= f.failUntil {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func (f *fakeStore) Degraded() bool { return f.degraded.Load() }

func (f *fakeStore) MarkHealthy() {
	if f.degraded.CompareAndSwap(true, false) {
		close(f.recovered)
	}
}

func TestStoreProbe_Clears_Degraded_Flag_On_Recovery(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{failUntil: 2, recovered: make(chan struct{})}
	store.degraded.Store(true)

	probe := NewStoreProbe(slog.Default(), store,
		5*time.Millisecond, 20*time.Millisecond, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = probe.Run(ctx) }()

	select {
	case <-store.recovered:
		// Ping succeeded after the backoff retries and cleared the flag
	case <-ctx.Done():
		req.Fail("store never marked healthy")
	}
	req.GreaterOrEqual(store.pings.Load(), int32(3))
}

func TestStoreProbe_Stops_With_Context(t *testing.T) {
	store := &fakeStore{recovered: make(chan struct{})}
	probe := NewStoreProbe(slog.Default(), store,
		5*time.Millisecond, 20*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = probe.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "probe did not stop")
	}
}
