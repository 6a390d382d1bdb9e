package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/pkg/auth"
	"github.com/homelet/service-classifieds/pkg/middleware"
	"github.com/homelet/service-classifieds/pkg/response"
)

// SubscriptionHandler handles HTTP requests for subscription reads.
type SubscriptionHandler struct {
	service *application.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(service *application.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// RegisterRoutes registers subscription routes on the given router group.
func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	subs := r.Group("/subscriptions")
	{
		subs.GET("/plans", h.ListPlans)

		authed := subs.Group("")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			authed.GET("/me", h.Me)
			authed.POST("/devices", h.RegisterDevice)
		}
	}
}

// ListPlans handles GET /api/v1/subscriptions/plans
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	dtos, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// Me handles GET /api/v1/subscriptions/me
func (h *SubscriptionHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	summary, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summary)
}

// RegisterDevice handles POST /api/v1/subscriptions/devices
func (h *SubscriptionHandler) RegisterDevice(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.RegisterDevice(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"registered": true})
}
