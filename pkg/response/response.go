package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homelet/service-classifieds/pkg/domain"
)

// envelope is the standard response shape.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: message})
}

// Error maps a domain error kind to the appropriate status code.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case domain.IsKind(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case domain.IsKind(err, domain.ErrPermission):
		status = http.StatusForbidden
	case domain.IsKind(err, domain.ErrConflict), domain.IsKind(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case domain.IsKind(err, domain.ErrGatewayRejected):
		status = http.StatusBadGateway
	case domain.IsKind(err, domain.ErrGatewayUnavailable):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, envelope{Success: false, Error: err.Error()})
}
