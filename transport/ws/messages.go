package ws

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// RoomCommand is the only inbound frame a user connection may send:
// a subscribe or unsubscribe for the room "<type>:<id>".
type RoomCommand struct {
	Action string `json:"action" validate:"required,oneof=subscribe unsubscribe"`
	Type   string `json:"type" validate:"required"`
	ID     string `json:"id" validate:"required"`
}

// ParseRoomCommand decodes and validates an inbound user frame. Malformed
// frames are reported to the caller, which logs and ignores them; a bad
// frame never kills the connection.
func ParseRoomCommand(raw []byte) (RoomCommand, error) {
	var cmd RoomCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return RoomCommand{}, err
	}
	if err := validate.Struct(cmd); err != nil {
		return RoomCommand{}, err
	}
	return cmd, nil
}

// JobResult is the single privileged frame the worker channel accepts. The
// bridge maps it to a publish on the project room; the worker never
// subscribes to anything.
type JobResult struct {
	Type      string          `json:"type" validate:"required"`
	TaskID    string          `json:"taskId"`
	ProjectID string          `json:"projectId" validate:"required"`
	Data      json.RawMessage `json:"data"`
}

// ParseJobResult decodes and validates an inbound worker frame.
func ParseJobResult(raw []byte) (JobResult, error) {
	var job JobResult
	if err := json.Unmarshal(raw, &job); err != nil {
		return JobResult{}, err
	}
	if err := validate.Struct(job); err != nil {
		return JobResult{}, err
	}
	return job, nil
}
