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

// PropertyHandler handles HTTP requests for property listings.
type PropertyHandler struct {
	service *application.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(service *application.PropertyService) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// RegisterRoutes registers property routes on the given router group.
func (h *PropertyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	properties := r.Group("/properties")
	properties.Use(middleware.AuthMiddleware(jwtManager))
	{
		properties.POST("", h.Create)
		properties.GET("/my-properties", h.MyProperties)
		properties.GET("/:id", h.Get)
		properties.POST("/:id/favorite", h.Favorite)
		properties.DELETE("/:id/favorite", h.Unfavorite)
	}

	admin := r.Group("/admin/properties")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/:id/verify", h.AdminVerify)
	}
}

// Create handles POST /api/v1/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// MyProperties handles GET /api/v1/properties/my-properties
func (h *PropertyHandler) MyProperties(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dtos, err := h.service.MyProperties(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// Get handles GET /api/v1/properties/:id
func (h *PropertyHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}

	dto, err := h.service.Get(c.Request.Context(), userID, propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// Favorite handles POST /api/v1/properties/:id/favorite
func (h *PropertyHandler) Favorite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}

	if err := h.service.Favorite(c.Request.Context(), userID, propertyID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"favorited": true})
}

// Unfavorite handles DELETE /api/v1/properties/:id/favorite
func (h *PropertyHandler) Unfavorite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}

	if err := h.service.Unfavorite(c.Request.Context(), userID, propertyID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"favorited": false})
}

// AdminVerify handles POST /api/v1/admin/properties/:id/verify
func (h *PropertyHandler) AdminVerify(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid property ID")
		return
	}

	dto, err := h.service.AdminVerify(c.Request.Context(), propertyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
