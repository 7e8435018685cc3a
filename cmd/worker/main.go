package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"taskhive/ai"
	"taskhive/domain/jobs"
	"taskhive/internal"
	"taskhive/repositories"
	"taskhive/runtime/workers"
	"taskhive/workerbridge"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the worker pipeline: Redis job queue -> model gateway -> results
// channel -> privileged bridge connection to the realtime server. Both
// stages run under the supervisor; the bridge owns its own reconnection, so
// a restarting server only costs the worker a backoff loop, never a crash.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)

	// 2. Job source (Redis)
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	defer func() {
		log.Info("Closing Redis client...")
		_ = rdb.Close()
	}()
	queue := repositories.NewJobQueue(rdb, log)

	// 3. Pipeline: runner and bridge share the results channel
	results := make(chan jobs.Result, config.ResultBufferSize)
	runner := ai.NewGatewayRunner(log, config.GatewayURL, config.GatewayTimeout)
	jobRunner := workers.NewJobRunner(log, queue, runner, results,
		config.PopTimeout, config.ResultSendTimeout)
	bridge := workerbridge.NewClient(log, config.ServerURL, config.WorkerSecret, results,
		config.BridgeMinBackoff, config.BridgeMaxBackoff)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Run under supervision until shutdown
	sup := workers.NewSupervisor(log)
	sup.Add(jobRunner, bridge)
	log.Info("Starting AI worker", "server", config.ServerURL)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
