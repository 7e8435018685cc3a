package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"taskhive/contract"
	domain "taskhive/domain/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
)

// JobHandler consumes privileged frames from worker connections.
type JobHandler interface {
	HandleJobResult(job JobResult) error
}

// Client is one live websocket connection. The transport owns the socket;
// the engine only ever sees the client through contract.EventSink. Events
// are pushed through a buffered send channel drained by the write pump, so
// a stalled peer backs up its own buffer and nothing else.
type Client struct {
	id       string
	kind     domain.ConnectionKind
	conn     *websocket.Conn
	send     chan []byte
	log      *slog.Logger
	realtime contract.IRealtime
	jobs     JobHandler
}

func newClient(id string, kind domain.ConnectionKind, conn *websocket.Conn,
	log *slog.Logger, realtime contract.IRealtime, jobs JobHandler, sendBuffer int) *Client {
	return &Client{
		id:       id,
		kind:     kind,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		log:      log,
		realtime: realtime,
		jobs:     jobs,
	}
}

func (c *Client) ID() string { return c.id }

// Consume implements contract.EventSink. It never blocks the publisher: a
// full send buffer drops the event for this connection only.
func (c *Client) Consume(_ context.Context, e domain.Event) error {
	frame, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event %q: %w", e.Name, err)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("send buffer full for connection %s", c.id)
	}
}

// readPump reads inbound frames until the peer goes away, dispatching each
// one according to the connection kind decided at handshake time. It blocks;
// the server runs it on the handler goroutine and tears the session down
// when it returns.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Connection closed unexpectedly",
					"connection_id", c.id, "kind", c.kind.String(), "error", err)
			}
			return
		}
		c.dispatch(ctx, raw)
	}
}

// dispatch routes one inbound frame. Malformed frames are logged and
// ignored; the connection stays alive.
func (c *Client) dispatch(ctx context.Context, raw []byte) {
	if c.kind.IsWorker() {
		job, err := ParseJobResult(raw)
		if err != nil {
			c.log.Warn("Malformed job result ignored", "connection_id", c.id, "error", err)
			return
		}
		if err := c.jobs.HandleJobResult(job); err != nil {
			c.log.Warn("Job result rejected", "connection_id", c.id, "error", err)
		}
		return
	}

	cmd, err := ParseRoomCommand(raw)
	if err != nil {
		c.log.Warn("Malformed room command ignored", "connection_id", c.id, "error", err)
		return
	}
	room, err := domain.NewRoom(domain.RoomKind(cmd.Type), cmd.ID)
	if err != nil {
		c.log.Warn("Room command for unknown kind ignored",
			"connection_id", c.id, "type", cmd.Type, "error", err)
		return
	}

	switch cmd.Action {
	case ActionSubscribe:
		err = c.realtime.Subscribe(ctx, c.kind, c, room)
	case ActionUnsubscribe:
		err = c.realtime.Unsubscribe(ctx, c.kind, c, room)
	}
	if err != nil {
		c.log.Warn("Room command rejected", "connection_id", c.id, "action", cmd.Action, "error", err)
	}
}

// writePump drains the send channel to the socket and keeps the connection
// alive with periodic pings. Runs on its own goroutine per connection.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
