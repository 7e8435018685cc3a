package workers

import (
	"context"
	"log/slog"
	"time"
)

// Probeable is the slice of the room store the probe needs: connectivity
// check and health transitions.
type Probeable interface {
	Ping(ctx context.Context) error
	Degraded() bool
	MarkHealthy()
}

// StoreProbe watches the durable room store. While the store is healthy it
// checks connectivity at the base interval; once pings start failing it
// backs off exponentially up to the ceiling, and after the configured number
// of consecutive failures it leaves the store in degraded, memory-only mode
// until a ping succeeds again. The engine itself never blocks on this: live
// join/leave and fan-out keep working throughout.
type StoreProbe struct {
	log          *slog.Logger
	store        Probeable
	baseInterval time.Duration
	maxInterval  time.Duration
	pingTimeout  time.Duration
}

func NewStoreProbe(log *slog.Logger, store Probeable,
	baseInterval, maxInterval, pingTimeout time.Duration) *StoreProbe {
	return &StoreProbe{
		log:          log,
		store:        store,
		baseInterval: baseInterval,
		maxInterval:  maxInterval,
		pingTimeout:  pingTimeout,
	}
}

func (w *StoreProbe) Run(ctx context.Context) error {
	interval := w.baseInterval
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}

		pingCtx, cancel := context.WithTimeout(ctx, w.pingTimeout)
		err := w.store.Ping(pingCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("Room store ping failed", "retry_in", min(interval*2, w.maxInterval), "error", err)
			interval = min(interval*2, w.maxInterval)
			continue
		}

		if w.store.Degraded() {
			w.store.MarkHealthy()
		}
		interval = w.baseInterval
	}
}
