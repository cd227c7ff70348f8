package handlers

import (
	"errors"
	"net/http"

	"taskboard/internal/models"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses. Every
// handler funnels service failures through here.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "access_denied",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "conflict",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "failed to process request",
		})
	}
}
