package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// EngineStats is the snapshot of engine state logged on every telemetry
// tick and served by the ops endpoint.
type EngineStats struct {
	Identities int
	Rooms      int
	Published  uint64
	Degraded   bool
}

type StatsProvider func() EngineStats

// TelemetryWorker periodically logs the engine counters alongside the
// process's own RSS and CPU usage. Pure observability: it reads, it never
// mutates.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    StatsProvider
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration, stats StatsProvider) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, stats: stats}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := w.stats()
			rss, cpu := selfStats(p)
			w.log.Info("Engine telemetry",
				"identities", stats.Identities,
				"rooms", stats.Rooms,
				"published", stats.Published,
				"store_degraded", stats.Degraded,
				"rss_bytes", rss,
				"cpu_percent", cpu)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64) {
	var rss uint64
	if mem, err := p.MemoryInfo(); err == nil {
		rss = mem.RSS
	}
	cpu, _ := p.Percent(0)
	return rss, cpu
}
