package ws_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"taskhive/auth"
	domain "taskhive/domain/realtime"
	"taskhive/realtime"
	"taskhive/transport/ws"
	"taskhive/workerbridge"
)

const (
	testJWTKey       = "test_signing_key_for_unit_tests_only"
	testWorkerSecret = "test-worker-secret"
)

// memoryStore is an in-memory stand-in for the Redis room store.
type memoryStore struct {
	mu    sync.Mutex
	rooms map[domain.Identity]map[domain.Room]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rooms: make(map[domain.Identity]map[domain.Room]struct{})}
}

func (m *memoryStore) AddRoom(_ context.Context, identity domain.Identity, room domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[identity]; !ok {
		m.rooms[identity] = make(map[domain.Room]struct{})
	}
	m.rooms[identity][room] = struct{}{}
	return nil
}

func (m *memoryStore) RemoveRoom(_ context.Context, identity domain.Identity, room domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms[identity], room)
	return nil
}

func (m *memoryStore) ListRooms(_ context.Context, identity domain.Identity) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []domain.Room
	for room := range m.rooms[identity] {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (m *memoryStore) has(identity domain.Identity, room domain.Room) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[identity][room]
	return ok
}

type fixture struct {
	server *httptest.Server
	router *realtime.Router
	store  *memoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.Default()
	store := newMemoryStore()
	registry := realtime.NewRegistry()
	router := realtime.NewRouter(log)
	subs := realtime.NewSubscriptions(log, router, store, time.Second)
	sessions := realtime.NewSessions(log, registry, router, store, subs)
	verifier := auth.NewVerifier(testJWTKey, testWorkerSecret)
	bridge := workerbridge.NewBridge(log, router)

	wsServer := ws.NewServer(log, sessions, bridge, verifier, 16)
	server := httptest.NewServer(wsServer)
	t.Cleanup(server.Close)
	return &fixture{server: server, router: router, store: store}
}

func (f *fixture) wsURL() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fixture) dialUser(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := auth.GenerateToken(testJWTKey, userID, nil, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL()+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *fixture) dialWorker(t *testing.T) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("X-Worker-Secret", testWorkerSecret)
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(), header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// settle subscribes to a sentinel room and waits for its durable record.
// Commands are only read after connect has finished and joins happen before
// the durable write, so a landed record means the connection is fully up.
func (f *fixture) settle(t *testing.T, conn *websocket.Conn, identity domain.Identity, kind, id string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ws.RoomCommand{Action: ws.ActionSubscribe, Type: kind, ID: id}))
	require.Eventually(t, func() bool {
		return f.store.has(identity, domain.Room(kind+":"+id))
	}, 3*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt domain.Event
	require.NoError(t, json.Unmarshal(frame, &evt))
	return evt
}

func TestServer_Refuses_Unauthenticated_Handshake(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.wsURL(), nil)
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_Subscribe_Then_Receive(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dialUser(t, "u1")

	req.NoError(conn.WriteJSON(ws.RoomCommand{Action: ws.ActionSubscribe, Type: "project", ID: "77"}))

	// The durable write lands strictly after the transport join, so once
	// the store has the record the room membership is live.
	req.Eventually(func() bool {
		return f.store.has("u1", "project:77")
	}, 3*time.Second, 10*time.Millisecond)

	f.router.Publish("project:77", "task:created", json.RawMessage(`{"id":5}`))

	evt := readEvent(t, conn)
	req.Equal("task:created", evt.Name)
	req.Equal(domain.Room("project:77"), evt.Room)
	req.JSONEq(`{"id":5}`, string(evt.Payload))
}

func TestServer_Personal_Room_Reaches_All_Devices(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	tab := f.dialUser(t, "u1")
	phone := f.dialUser(t, "u1")
	other := f.dialUser(t, "u2")

	// A command is only processed once connect (and the unconditional
	// personal-room join) has finished, so a landed durable write proves
	// every handshake is fully settled.
	f.settle(t, tab, "u1", "task", "100")
	f.settle(t, phone, "u1", "task", "200")
	f.settle(t, other, "u2", "task", "300")

	f.router.Publish(domain.PersonalRoom("u1"), "workspace:invited", nil)

	// Both devices receive the identity-addressed event without any
	// explicit subscription to user:u1; u2's connection hears nothing
	req.Equal("workspace:invited", readEvent(t, tab).Name)
	req.Equal("workspace:invited", readEvent(t, phone).Name)

	req.NoError(other.SetReadDeadline(time.Now().Add(200 * time.Millisecond)))
	_, _, err := other.ReadMessage()
	req.Error(err)
}

func TestServer_Worker_Job_Result_Reaches_Subscribers(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	user := f.dialUser(t, "u1")
	worker := f.dialWorker(t)

	req.NoError(user.WriteJSON(ws.RoomCommand{Action: ws.ActionSubscribe, Type: "project", ID: "77"}))
	req.Eventually(func() bool {
		return f.store.has("u1", "project:77")
	}, 3*time.Second, 10*time.Millisecond)

	// The worker pushes a job result without ever subscribing
	req.NoError(worker.WriteJSON(ws.JobResult{
		Type:      "completed",
		TaskID:    "t1",
		ProjectID: "77",
		Data:      json.RawMessage(`{"summary":"done"}`),
	}))

	evt := readEvent(t, user)
	req.Equal("ai:completed", evt.Name)
	req.Equal(domain.Room("project:77"), evt.Room)
	req.JSONEq(`{"taskId":"t1","data":{"summary":"done"}}`, string(evt.Payload))
}

func TestServer_Reconnect_Rehydrates_Subscriptions(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	first := f.dialUser(t, "u1")
	req.NoError(first.WriteJSON(ws.RoomCommand{Action: ws.ActionSubscribe, Type: "project", ID: "77"}))
	req.Eventually(func() bool {
		return f.store.has("u1", "project:77")
	}, 3*time.Second, 10*time.Millisecond)

	// Disconnect without unsubscribing: the durable record must survive
	req.NoError(first.Close())

	// By the time the sentinel subscribe lands, rehydration of the new
	// connection is complete and project:77 is joined again
	second := f.dialUser(t, "u1")
	f.settle(t, second, "u1", "task", "1")

	f.router.Publish("project:77", "task:updated", nil)
	evt := readEvent(t, second)
	req.Equal("task:updated", evt.Name)
	req.Equal(domain.Room("project:77"), evt.Room)
}

func TestServer_Malformed_Command_Keeps_Connection_Alive(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dialUser(t, "u1")

	// Garbage, an unknown action and an unknown room kind are all ignored
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	req.NoError(conn.WriteJSON(ws.RoomCommand{Action: ws.ActionSubscribe, Type: "channel", ID: "1"}))

	// The connection still works afterwards
	req.NoError(conn.WriteJSON(ws.RoomCommand{Action: ws.ActionSubscribe, Type: "task", ID: "9"}))
	req.Eventually(func() bool {
		return f.store.has("u1", "task:9")
	}, 3*time.Second, 10*time.Millisecond)
}
