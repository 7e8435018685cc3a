package jobs

import (
	"encoding/json"
	"time"
)

// AIJob is one unit of background work dequeued by the worker process. The
// platform's REST layer enqueues these when a user asks for an AI action on
// a task; prompt building and model invocation live outside this module.
type AIJob struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	ProjectID string    `json:"projectId"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result is what the worker pushes back over the privileged channel once a
// job finishes. The server maps it to a publish on "project:<projectId>"
// with the event name "ai:<type>".
type Result struct {
	Type      string          `json:"type"`
	TaskID    string          `json:"taskId"`
	ProjectID string          `json:"projectId"`
	Data      json.RawMessage `json:"data"`
}
