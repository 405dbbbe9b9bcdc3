package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/repositories"
)

// ChatWebSocketHandler handles the realtime channel: one connection per
// user, presence roster broadcasts on connect and disconnect, and chat
// frame fan-out to sender and receiver.
type ChatWebSocketHandler struct {
	hub         *Hub
	userRepo    repositories.UserRepository
	messageRepo repositories.MessageRepository
	logger      zerolog.Logger
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, userRepo repositories.UserRepository, messageRepo repositories.MessageRepository, logger zerolog.Logger) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{
		hub:         hub,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		logger:      logger.With().Str("component", "chat_ws").Logger(),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers the user in the hub, and
// serves the read loop until the socket closes.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	userID := c.Param("user_id")

	ctx, span := otel.Tracer("chat-devserver/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	if _, err := h.userRepo.GetUser(ctx, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Register(userID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, "ws_connect", info, 0, "")

	// Everyone learns the new roster, the newcomer included.
	h.hub.BroadcastPresence(ctx)

	// The read loop outlives this handler, so it must not inherit the
	// request context's cancellation.
	go h.readLoop(context.WithoutCancel(ctx), userID, conn, info)
}

func (h *ChatWebSocketHandler) readLoop(ctx context.Context, userID string, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Unregister(userID, conn)
		conn.Close()
		h.hub.BroadcastPresence(ctx)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var send models.ChatSend
		if err := json.Unmarshal(data, &send); err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("dropping malformed chat send")
			continue
		}
		if send.ReceiverID == "" {
			h.logger.Warn().Str("user_id", userID).Msg("dropping chat send without receiver")
			continue
		}

		msg, err := h.messageRepo.CreateMessage(ctx, send, userID)
		if err != nil {
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to store message")
			continue
		}

		h.hub.SendToUser(ctx, msg.ReceiverID, msg)
		if msg.SenderID != msg.ReceiverID {
			// The sender sees its own message through the same echo path.
			h.hub.SendToUser(ctx, msg.SenderID, msg)
		}
	}
}

func (h *ChatWebSocketHandler) publishLifecycle(ctx context.Context, event string, info ConnInfo, durationMS int64, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id": info.UserID,
				"ip":      info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
