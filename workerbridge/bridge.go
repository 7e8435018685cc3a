package workerbridge

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"taskhive/contract"
	domain "taskhive/domain/realtime"
	"taskhive/transport/ws"
)

// Bridge is the server half of the privileged worker channel. A worker
// connection bypasses subscription bookkeeping entirely: each job result it
// pushes is mapped straight to a publish on the project room named by the
// payload. The bridge holds no per-connection state, so a worker disconnect
// needs no cleanup.
type Bridge struct {
	publisher contract.IRouter
	log       *slog.Logger
}

func NewBridge(log *slog.Logger, publisher contract.IRouter) *Bridge {
	return &Bridge{publisher: publisher, log: log}
}

// aiEventPayload is what project-room subscribers see when a job finishes.
type aiEventPayload struct {
	TaskID string          `json:"taskId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// HandleJobResult maps an inbound worker frame to
// publish("project:<projectId>", "ai:<type>", {taskId, data}).
func (b *Bridge) HandleJobResult(job ws.JobResult) error {
	room, err := domain.NewRoom(domain.KindProject, job.ProjectID)
	if err != nil {
		return fmt.Errorf("job result for project %q: %w", job.ProjectID, err)
	}

	payload, err := json.Marshal(aiEventPayload{TaskID: job.TaskID, Data: job.Data})
	if err != nil {
		return fmt.Errorf("encoding job result payload: %w", err)
	}

	name := fmt.Sprintf("ai:%s", job.Type)
	b.publisher.Publish(room, name, payload)
	b.log.Debug("Job result published",
		"room", room,
		"event", name,
		"task_id", job.TaskID)
	return nil
}
