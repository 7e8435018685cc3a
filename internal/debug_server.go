package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"taskhive/runtime/workers"
)

// StartDebugServer exposes a small ops surface on its own port: liveness,
// the engine counters as JSON, and pprof. It reads through the same stats
// provider the telemetry worker uses, so the numbers always agree.
func StartDebugServer(log *slog.Logger, port int, stats workers.StatsProvider) {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		s := stats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"identities":     s.Identities,
			"rooms":          s.Rooms,
			"published":      s.Published,
			"store_degraded": s.Degraded,
			"generated_at":   time.Now().UTC(),
		})
	})

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	go func() {
		addr := fmt.Sprintf("localhost:%d", port)
		log.Info("Debug server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
}
