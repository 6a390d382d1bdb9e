package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/pkg/auth"
	"github.com/homelet/service-classifieds/pkg/middleware"
	"github.com/homelet/service-classifieds/pkg/response"
)

// NotificationHandler handles HTTP requests for notifications.
type NotificationHandler struct {
	service *application.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterRoutes registers notification routes on the given router group.
func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware(jwtManager))
	{
		notifications.GET("", h.List)
		notifications.POST("/mark_read", h.MarkRead)
	}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dtos, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// MarkRead handles POST /api/v1/notifications/mark_read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), userID, req.IDs); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"marked": len(req.IDs)})
}
