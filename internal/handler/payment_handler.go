package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/homelet/service-classifieds/internal/application"
	"github.com/homelet/service-classifieds/pkg/auth"
	"github.com/homelet/service-classifieds/pkg/middleware"
	"github.com/homelet/service-classifieds/pkg/response"
)

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	payments *application.PaymentService
	verifier *application.VerificationService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *application.PaymentService, verifier *application.VerificationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, verifier: verifier}
}

// RegisterRoutes registers all payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware(jwtManager))
	{
		payments.POST("/listing", h.CreateListingPayment)
		payments.POST("/verify-listing", h.VerifyListing)
		payments.POST("/verify-subscription", h.VerifySubscription)
	}

	subPayments := r.Group("/subscription-payments")
	subPayments.Use(middleware.AuthMiddleware(jwtManager))
	{
		subPayments.POST("", h.CreateSubscriptionPayment)
		subPayments.POST("/preview", h.Preview)
		subPayments.GET("", h.ListMySubscriptionPayments)
	}
}

// CreateListingPayment handles POST /api/v1/payments/listing
func (h *PaymentHandler) CreateListingPayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateListingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.payments.CreateListingPayment(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// VerifyListing handles POST /api/v1/payments/verify-listing
func (h *PaymentHandler) VerifyListing(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.verifier.VerifyListing(c.Request.Context(), userID, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// VerifySubscription handles POST /api/v1/payments/verify-subscription
func (h *PaymentHandler) VerifySubscription(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.verifier.VerifySubscription(c.Request.Context(), userID, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// CreateSubscriptionPayment handles POST /api/v1/subscription-payments
func (h *PaymentHandler) CreateSubscriptionPayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateSubscriptionPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.payments.CreateSubscriptionPayment(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// Preview handles POST /api/v1/subscription-payments/preview
func (h *PaymentHandler) Preview(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	amount, err := h.payments.PreviewSubscriptionPayment(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"amount": amount})
}

// ListMySubscriptionPayments handles GET /api/v1/subscription-payments
func (h *PaymentHandler) ListMySubscriptionPayments(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	dtos, total, err := h.payments.ListMySubscriptionPayments(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dtos, total, page, limit)
}
