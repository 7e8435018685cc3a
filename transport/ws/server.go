package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"taskhive/auth"
	"taskhive/contract"
	domain "taskhive/domain/realtime"
)

const workerSecretHeader = "X-Worker-Secret"

// Server upgrades HTTP requests into live connections. Authentication
// happens before the upgrade: a request that fails verification is refused
// with 401 and no engine state is ever created for it. The connection kind
// (user or worker) is decided here, exactly once, and carried with the
// client for its whole life.
type Server struct {
	log        *slog.Logger
	realtime   contract.IRealtime
	jobs       JobHandler
	verifier   *auth.Verifier
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewServer(log *slog.Logger, realtime contract.IRealtime, jobs JobHandler,
	verifier *auth.Verifier, sendBuffer int) *Server {
	return &Server{
		log:      log,
		realtime: realtime,
		jobs:     jobs,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin policy is enforced by the fronting proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind, err := s.authenticate(r)
	if err != nil {
		s.log.Warn("Handshake refused", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(uuid.NewString(), kind, conn, s.log, s.realtime, s.jobs, s.sendBuffer)
	s.log.Info("Connection admitted",
		"connection_id", client.ID(),
		"kind", kind.String(),
		"remote", r.RemoteAddr)

	// Register and rehydrate synchronously: the connection processes no
	// commands and receives no events until its rooms are restored.
	ctx := r.Context()
	s.realtime.Connect(ctx, kind, client)
	defer s.realtime.Disconnect(kind, client)

	go client.writePump(ctx)
	client.readPump(ctx)
}

// authenticate resolves the connection kind from the request. The worker
// shared secret wins over a user token so a worker process never ends up
// registered under an identity by accident.
func (s *Server) authenticate(r *http.Request) (domain.ConnectionKind, error) {
	if secret := r.Header.Get(workerSecretHeader); secret != "" {
		return s.verifier.VerifyWorkerSecret(secret)
	}
	return s.verifier.VerifyToken(bearerToken(r))
}

// bearerToken pulls the JWT from the Authorization header or, for browser
// clients that cannot set headers on websocket dials, the token query
// parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
