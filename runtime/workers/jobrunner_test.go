package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"taskhive/domain/jobs"
	"taskhive/mocks"
)

// scriptedRunner fails jobs whose prompt says so, completes the rest.
type scriptedRunner struct{}

func (scriptedRunner) Run(_ context.Context, job jobs.AIJob) (jobs.Result, error) {
	if job.Prompt == "fail" {
		return jobs.Result{}, fmt.Errorf("model blew up")
	}
	return jobs.Result{
		Type:      "completed",
		TaskID:    job.TaskID,
		ProjectID: job.ProjectID,
		Data:      json.RawMessage(`{"ok":true}`),
	}, nil
}

func TestJobRunner_Pushes_Results_And_Skips_Failures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockIJobQueue(ctrl)
	results := make(chan jobs.Result, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good := &jobs.AIJob{ID: "j1", TaskID: "t1", ProjectID: "77", Prompt: "summarize"}
	bad := &jobs.AIJob{ID: "j2", TaskID: "t2", ProjectID: "77", Prompt: "fail"}

	gomock.InOrder(
		queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(good, nil),
		queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(bad, nil),
		// An empty poll, then stop the loop
		queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(nil, nil),
		queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, time.Duration) (*jobs.AIJob, error) {
				cancel()
				return nil, nil
			}),
	)
	queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	w := NewJobRunner(slog.Default(), queue, scriptedRunner{}, results, time.Second, time.Second)
	req.NoError(w.Run(ctx))

	// Only the good job produced a result
	req.Len(results, 1)
	result := <-results
	req.Equal("t1", result.TaskID)
	req.Equal("completed", result.Type)
}

func TestJobRunner_Stops_On_Queue_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockIJobQueue(ctrl)

	queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("connection refused"))

	w := NewJobRunner(slog.Default(), queue, scriptedRunner{},
		make(chan jobs.Result, 1), time.Second, time.Second)

	// The supervisor owns restarts; the worker just reports the failure
	req.Error(w.Run(context.Background()))
}
