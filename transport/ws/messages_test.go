package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoomCommand(t *testing.T) {
	t.Run("should accept a well-formed subscribe", func(t *testing.T) {
		req := require.New(t)
		cmd, err := ParseRoomCommand([]byte(`{"action":"subscribe","type":"project","id":"77"}`))
		req.NoError(err)
		req.Equal(ActionSubscribe, cmd.Action)
		req.Equal("project", cmd.Type)
		req.Equal("77", cmd.ID)
	})

	t.Run("should accept a well-formed unsubscribe", func(t *testing.T) {
		req := require.New(t)
		cmd, err := ParseRoomCommand([]byte(`{"action":"unsubscribe","type":"task","id":"9"}`))
		req.NoError(err)
		req.Equal(ActionUnsubscribe, cmd.Action)
	})

	t.Run("should reject unknown actions", func(t *testing.T) {
		_, err := ParseRoomCommand([]byte(`{"action":"join","type":"task","id":"9"}`))
		require.Error(t, err)
	})

	t.Run("should reject missing fields", func(t *testing.T) {
		_, err := ParseRoomCommand([]byte(`{"action":"subscribe","type":"task"}`))
		require.Error(t, err)
	})

	t.Run("should reject invalid JSON", func(t *testing.T) {
		_, err := ParseRoomCommand([]byte(`subscribe project 77`))
		require.Error(t, err)
	})
}

func TestParseJobResult(t *testing.T) {
	t.Run("should accept a well-formed job result", func(t *testing.T) {
		req := require.New(t)
		job, err := ParseJobResult([]byte(`{"type":"completed","taskId":"t1","projectId":"77","data":{"summary":"done"}}`))
		req.NoError(err)
		req.Equal("completed", job.Type)
		req.Equal("t1", job.TaskID)
		req.Equal("77", job.ProjectID)
		req.JSONEq(`{"summary":"done"}`, string(job.Data))
	})

	t.Run("should reject a result without a project", func(t *testing.T) {
		_, err := ParseJobResult([]byte(`{"type":"completed","taskId":"t1"}`))
		require.Error(t, err)
	})

	t.Run("should reject a result without a type", func(t *testing.T) {
		_, err := ParseJobResult([]byte(`{"projectId":"77"}`))
		require.Error(t, err)
	})
}
