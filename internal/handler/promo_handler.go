package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/pkg/auth"
	"github.com/homelet/service-classifieds/pkg/middleware"
	"github.com/homelet/service-classifieds/pkg/response"
)

// PromoHandler handles HTTP requests for promo code administration.
type PromoHandler struct {
	service *application.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(service *application.PromoService) *PromoHandler {
	return &PromoHandler{service: service}
}

// RegisterRoutes registers admin promo routes on the given router group.
func (h *PromoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	promos := r.Group("/admin/promos")
	promos.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		promos.POST("", h.Create)
		promos.GET("", h.ListActive)
	}
}

// Create handles POST /api/v1/admin/promos
func (h *PromoHandler) Create(c *gin.Context) {
	var req application.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// ListActive handles GET /api/v1/admin/promos
func (h *PromoHandler) ListActive(c *gin.Context) {
	dtos, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}
