package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// Hub maintains the active websocket connections keyed by user id. The
// set of keys is the online roster.
type Hub struct {
	logger zerolog.Logger

	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]ConnInfo
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "hub").Logger(),
		conns:  make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// Register adds a connection for a user.
func (h *Hub) Register(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[userID]; !ok {
		h.conns[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.conns[userID][conn] = info
}

// Unregister removes a connection. The user leaves the roster once the
// last connection is gone.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// OnlineIDs returns the sorted roster of connected user ids.
func (h *Hub) OnlineIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BroadcastPresence sends the full roster snapshot to every connection.
func (h *Hub) BroadcastPresence(ctx context.Context) {
	frame := models.Frame{Type: models.FrameTypePresence, OnlineIDs: h.OnlineIDs()}
	payload, _ := json.Marshal(frame)

	for _, target := range h.snapshot() {
		h.write(ctx, target, payload)
	}
}

// SendToUser delivers a chat frame to every connection of one user.
func (h *Hub) SendToUser(ctx context.Context, userID string, msg models.Message) {
	frame := models.Frame{Type: models.FrameTypeChat, Message: &msg}
	payload, _ := json.Marshal(frame)

	h.mu.RLock()
	targets := make([]connTarget, 0, len(h.conns[userID]))
	for conn, info := range h.conns[userID] {
		targets = append(targets, connTarget{userID: userID, conn: conn, info: info})
	}
	h.mu.RUnlock()

	for _, target := range targets {
		h.write(ctx, target, payload)
	}
}

type connTarget struct {
	userID string
	conn   *websocket.Conn
	info   ConnInfo
}

func (h *Hub) snapshot() []connTarget {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var targets []connTarget
	for userID, conns := range h.conns {
		for conn, info := range conns {
			targets = append(targets, connTarget{userID: userID, conn: conn, info: info})
		}
	}
	return targets
}

func (h *Hub) write(ctx context.Context, target connTarget, payload []byte) {
	if err := target.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Warn().Err(err).Str("user_id", target.userID).Msg("websocket write error")
		target.conn.Close()
		h.Unregister(target.userID, target.conn)
		h.publishWSError(ctx, target, err)
	}
}

func (h *Hub) publishWSError(ctx context.Context, target connTarget, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     target.info.ConnID,
			"duration_ms": time.Since(target.info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id": target.info.UserID,
			"ip":      target.info.IP,
		},
	}

	headers := observability.BuildHeaders(target.info.RequestID, target.info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
