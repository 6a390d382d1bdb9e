package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/pkg/auth"
	"github.com/homelet/service-classifieds/pkg/middleware"
	"github.com/homelet/service-classifieds/pkg/response"
)

// MessageHandler handles HTTP requests for direct messages.
type MessageHandler struct {
	service *application.ChatService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(service *application.ChatService) *MessageHandler {
	return &MessageHandler{service: service}
}

// RegisterRoutes registers message routes on the given router group.
func (h *MessageHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	messages := r.Group("/messages")
	messages.Use(middleware.AuthMiddleware(jwtManager))
	{
		messages.GET("", h.List)
		messages.DELETE("/:id", h.Delete)
	}
}

// List handles GET /api/v1/messages. With ?user_id= it returns a single
// thread and marks its unread messages read; without it, everything the
// caller sent or received.
func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	otherParam := c.Query("user_id")
	if otherParam == "" {
		dtos, err := h.service.ListForUser(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, dtos)
		return
	}

	otherID, err := uuid.Parse(otherParam)
	if err != nil {
		response.BadRequest(c, "invalid user ID")
		return
	}

	dtos, err := h.service.Thread(c.Request.Context(), userID, otherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// Delete handles DELETE /api/v1/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, messageID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
