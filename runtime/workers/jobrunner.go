package workers

import (
	"context"
	"log/slog"
	"time"

	"taskhive/domain/jobs"
	"taskhive/repositories"
)

// Runner executes one AI job and produces its result payload. Prompt
// building and model invocation live behind this seam, outside the module.
type Runner interface {
	Run(ctx context.Context, job jobs.AIJob) (jobs.Result, error)
}

// JobRunner is the worker binary's pipeline: it pops jobs off the Redis
// queue, hands them to the Runner, and pushes results into the bridge
// client's channel. A failed job is logged and skipped; the queue never
// stalls on one bad job.
type JobRunner struct {
	log         *slog.Logger
	queue       repositories.IJobQueue
	runner      Runner
	results     chan<- jobs.Result
	popTimeout  time.Duration
	sendTimeout time.Duration
}

func NewJobRunner(log *slog.Logger, queue repositories.IJobQueue, runner Runner,
	results chan<- jobs.Result, popTimeout, sendTimeout time.Duration) *JobRunner {
	return &JobRunner{
		log:         log,
		queue:       queue,
		runner:      runner,
		results:     results,
		popTimeout:  popTimeout,
		sendTimeout: sendTimeout,
	}
}

func (w *JobRunner) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		job, err := w.queue.Dequeue(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if job == nil {
			continue
		}

		result, err := w.runner.Run(ctx, *job)
		if err != nil {
			w.log.Warn("Job failed, skipping",
				"job_id", job.ID, "task_id", job.TaskID, "error", err)
			continue
		}

		select {
		case w.results <- result:
		case <-time.After(w.sendTimeout):
			w.log.Warn("Result channel saturated, result dropped", "job_id", job.ID)
		case <-ctx.Done():
			return nil
		}
	}
}
