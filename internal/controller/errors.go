package controller

import (
	"errors"
	"net/http"

	"letter-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps business errors onto HTTP codes. Conflict responses
// carry the actual current status so the caller can recover from the race.
func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	var conflict *service.StatusConflictError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":          conflict.Error(),
			"code":           "STATUS_MISMATCH",
			"current_status": conflict.Current,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status transition"})
	case errors.Is(err, service.ErrAlreadyPaid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "order is already paid"})
	case errors.Is(err, service.ErrAmountNotSet):
		c.JSON(http.StatusBadRequest, gin.H{"error": "order total has not been finalized"})
	case errors.Is(err, service.ErrPDFLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "pdf generation in progress"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrProvider):
		// No provider internals leak to the client.
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
