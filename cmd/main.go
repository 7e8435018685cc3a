package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"taskhive/auth"
	"taskhive/internal"
	"taskhive/realtime"
	"taskhive/repositories"
	"taskhive/runtime/workers"
	"taskhive/transport/ws"
	"taskhive/workerbridge"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like connection cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the listener and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)

	// 2. Durable store (Redis)
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	defer func() {
		log.Info("Closing Redis client...")
		_ = rdb.Close()
	}()
	store := repositories.NewRoomStore(rdb, log, config.StoreFailureCeiling)

	// 3. Engine composition: registry, router, subscriptions, sessions
	registry := realtime.NewRegistry()
	router := realtime.NewRouter(log)
	subscriptions := realtime.NewSubscriptions(log, router, store, config.StoreWriteTimeout)
	sessions := realtime.NewSessions(log, registry, router, store, subscriptions)

	// 4. Handshake verification & worker bridge
	verifier := auth.NewVerifier(config.JWTKey, config.WorkerSecret)
	bridge := workerbridge.NewBridge(log, router)
	wsServer := ws.NewServer(log, sessions, bridge, verifier, config.ConnectionBufferSize)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers & ops surface
	stats := func() workers.EngineStats {
		return workers.EngineStats{
			Identities: registry.Size(),
			Rooms:      router.RoomCount(),
			Published:  router.Published(),
			Degraded:   store.Degraded(),
		}
	}
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewStoreProbe(log, store, config.ProbeBaseInterval, config.ProbeMaxInterval, config.ProbePingTimeout),
		workers.NewTelemetryWorker(log, config.MetricInterval, stats),
	)
	go sup.Run(ctx)
	internal.StartDebugServer(log, config.DebugPort, stats)

	// 7. HTTP listener: the websocket endpoint is the only inbound surface
	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting realtime server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("listener error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
