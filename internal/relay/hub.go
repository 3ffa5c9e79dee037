package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

const writeWait = 5 * time.Second

var connectedFrame = []byte(`{"type":"connected"}`)

type session struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub is the set of WebSocket sessions listening for payment events.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:      logger.OrDefault(log),
		sessions: map[string]*session{},
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeWS upgrades the request and keeps the session registered until the
// client goes away. Inbound frames are read and discarded.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}

	s := &session{id: uuid.NewString(), conn: conn}
	h.register(s)
	defer h.unregister(s)

	if err := s.send(connectedFrame); err != nil {
		return
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	n := len(h.sessions)
	h.mu.Unlock()
	h.log.Info("websocket session opened", slog.String("session_id", s.id), slog.Int("sessions", n))
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	n := len(h.sessions)
	h.mu.Unlock()
	s.conn.Close()
	if ok {
		h.log.Info("websocket session closed", slog.String("session_id", s.id), slog.Int("sessions", n))
	}
}

// Broadcast sends msg to every session and drops the ones that fail. It
// returns the number of successful deliveries.
func (h *Hub) Broadcast(msg []byte) int {
	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	sent := 0
	for _, s := range targets {
		if err := s.send(msg); err != nil {
			h.log.Warn("dropping websocket session after send failure",
				slog.String("session_id", s.id),
				slog.Any("err", err),
			)
			h.unregister(s)
			continue
		}
		sent++
	}
	return sent
}

// Publish broadcasts p in-process.
func (h *Hub) Publish(ctx context.Context, p Payload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	h.Broadcast(raw)
	return nil
}
