package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/internal/ws"
	"github.com/homelet/service-classifieds/pkg/auth"
)

const wsSendTimeout = 10 * time.Second

// chatFrame is the inbound envelope a client sends over the chat socket.
type chatFrame struct {
	Recipient uuid.UUID `json:"recipient"`
	Content   string    `json:"content"`
}

// WSHandler upgrades and serves the realtime endpoints. Authentication
// uses a bearer token in the query string, validated synchronously at
// connect time; the handshake completes either way but unauthenticated
// sessions are closed immediately after.
type WSHandler struct {
	hub      *ws.Hub
	chatSvc  *application.ChatService
	jwt      *auth.JWTManager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *ws.Hub, chatSvc *application.ChatService, jwt *auth.JWTManager, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:     hub,
		chatSvc: chatSvc,
		jwt:     jwt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the realtime endpoints on the engine root.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/chat", h.Chat)
	r.GET("/ws/notifications", h.Notifications)
}

// authenticate upgrades the connection and validates the query token.
// It returns a nil client when the session is anonymous; the connection
// has already been closed in that case.
func (h *WSHandler) authenticate(c *gin.Context) *ws.Client {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return nil
	}

	claims, err := h.jwt.Verify(c.Query("token"))
	if err != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"),
			time.Now().Add(wsSendTimeout),
		)
		conn.Close()
		return nil
	}

	return ws.NewClient(h.hub, conn, claims.UserID, h.logger)
}

// Chat handles GET /ws/chat?token=
func (h *WSHandler) Chat(c *gin.Context) {
	client := h.authenticate(c)
	if client == nil {
		return
	}

	h.hub.Subscribe(ws.GroupChat(client.UserID()), client)

	go client.WritePump()
	client.ReadPump(h.handleChatFrame)
}

// handleChatFrame persists an inbound message and fans it out: the
// recipient gets it through their group, the sender gets the identical
// payload echoed back on the same connection.
func (h *WSHandler) handleChatFrame(client *ws.Client, data []byte) {
	var frame chatFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.logger.Warn("invalid chat frame", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsSendTimeout)
	defer cancel()

	dto, err := h.chatSvc.Send(ctx, client.UserID(), frame.Recipient, frame.Content)
	if err != nil {
		h.logger.Warn("failed to send chat message",
			zap.String("sender", client.UserID().String()),
			zap.Error(err),
		)
		return
	}

	payload, err := json.Marshal(dto)
	if err != nil {
		h.logger.Error("failed to marshal message payload", zap.Error(err))
		return
	}

	h.hub.Publish(ws.GroupChat(frame.Recipient), dto)
	client.Send(payload)
}

// Notifications handles GET /ws/notifications?token=
func (h *WSHandler) Notifications(c *gin.Context) {
	client := h.authenticate(c)
	if client == nil {
		return
	}

	h.hub.Subscribe(ws.GroupNotifications(client.UserID()), client)

	go client.WritePump()
	client.ReadPump(nil)
}
