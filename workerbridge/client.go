package workerbridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"taskhive/domain/jobs"
)

const secretHeader = "X-Worker-Secret"

// Client is the worker-process half of the privileged channel. It holds no
// state between connections: it dials the server, drains the results channel
// into the socket, and on any failure tears the connection down and dials
// again with bounded exponential backoff. Reconnection is entirely the
// worker's responsibility; the server side never chases a lost worker.
type Client struct {
	url        string
	secret     string
	log        *slog.Logger
	results    <-chan jobs.Result
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewClient(log *slog.Logger, url, secret string, results <-chan jobs.Result,
	minBackoff, maxBackoff time.Duration) *Client {
	return &Client{
		url:        url,
		secret:     secret,
		log:        log,
		results:    results,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

// Run keeps one live connection to the server for as long as the context
// lasts. Implements contract.Worker so the worker binary's supervisor owns
// its lifecycle.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("Bridge dial failed, retrying", "url", c.url, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		backoff = c.minBackoff
		c.log.Info("Bridge connected", "url", c.url)
		c.pump(ctx, conn)
		_ = conn.Close()
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set(secretHeader, c.secret)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dialing %s: %w", c.url, err)
	}
	return conn, nil
}

// pump writes results until the connection or the context dies. A reader
// goroutine discards inbound frames so control messages keep being
// processed; its error doubles as the disconnect signal.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) {
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "worker shutting down"))
			return
		case err := <-readErr:
			c.log.Warn("Bridge connection lost", "error", err)
			return
		case result := <-c.results:
			if err := conn.WriteJSON(result); err != nil {
				c.log.Warn("Job result write failed, result dropped",
					"task_id", result.TaskID, "error", err)
				return
			}
			c.log.Debug("Job result sent",
				"task_id", result.TaskID, "project_id", result.ProjectID)
		}
	}
}
