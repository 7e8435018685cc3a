//go:generate go run go.uber.org/mock/mockgen -source=jobqueue.go -destination=../mocks/mock_jobqueue.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"taskhive/domain/jobs"
)

const jobQueueKey = "jobs:ai"

type IJobQueue interface {
	Enqueue(ctx context.Context, job jobs.AIJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (*jobs.AIJob, error)
}

// JobQueue is the Redis list the REST layer pushes AI jobs onto and the
// worker process pops them from. LPUSH/BRPOP keeps FIFO order for a single
// worker; with several workers each job still goes to exactly one of them.
type JobQueue struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewJobQueue(rdb *redis.Client, log *slog.Logger) JobQueue {
	return JobQueue{rdb: rdb, log: log}
}

func (q JobQueue) Enqueue(ctx context.Context, job jobs.AIJob) error {
	bytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job %q: %w", job.ID, err)
	}
	if err := q.rdb.LPush(ctx, jobQueueKey, bytes).Err(); err != nil {
		return fmt.Errorf("enqueuing job %q: %w", job.ID, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. Returns nil without error
// when the timeout elapses with an empty queue, so the caller can loop on
// its context.
func (q JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*jobs.AIJob, error) {
	values, err := q.rdb.BRPop(ctx, timeout, jobQueueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}
	// BRPop returns [key, value].
	var job jobs.AIJob
	if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
		q.log.Warn("Discarding undecodable job", "error", err)
		return nil, nil
	}
	return &job, nil
}
