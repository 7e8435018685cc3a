package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"taskhive/domain/jobs"
)

// GatewayRunner executes AI jobs against the platform's model gateway. The
// gateway owns prompt templating and provider selection; this client only
// ships the job over and wraps whatever JSON the gateway answers with into
// the result pushed back to subscribers.
type GatewayRunner struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

func NewGatewayRunner(log *slog.Logger, url string, timeout time.Duration) *GatewayRunner {
	return &GatewayRunner{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

type gatewayRequest struct {
	JobID  string `json:"jobId"`
	TaskID string `json:"taskId"`
	Prompt string `json:"prompt"`
}

func (r *GatewayRunner) Run(ctx context.Context, job jobs.AIJob) (jobs.Result, error) {
	body, err := json.Marshal(gatewayRequest{JobID: job.ID, TaskID: job.TaskID, Prompt: job.Prompt})
	if err != nil {
		return jobs.Result{}, fmt.Errorf("encoding gateway request for job %q: %w", job.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return jobs.Result{}, fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("calling model gateway for job %q: %w", job.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return jobs.Result{}, fmt.Errorf("model gateway answered %d for job %q", resp.StatusCode, job.ID)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("reading gateway response for job %q: %w", job.ID, err)
	}
	if !json.Valid(data) {
		return jobs.Result{}, fmt.Errorf("model gateway answered non-JSON for job %q", job.ID)
	}

	return jobs.Result{
		Type:      "completed",
		TaskID:    job.TaskID,
		ProjectID: job.ProjectID,
		Data:      data,
	}, nil
}
