package delivery

import (
	"errors"
	"log"
	"net/http"

	emaildomain "mailboard-backend/internal/email/domain"

	"github.com/gin-gonic/gin"
)

// respondError maps usecase errors to status codes
func respondError(c *gin.Context, err error) {
	var verr *emaildomain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, emaildomain.ErrColumnNotFound),
		errors.Is(err, emaildomain.ErrLabelNotFound),
		errors.Is(err, emaildomain.ErrNotSnoozed):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, emaildomain.ErrDefaultColumn),
		errors.Is(err, emaildomain.ErrEmailSnoozed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, emaildomain.ErrProviderFailure):
		log.Printf("[EmailHandler] Provider failure on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Printf("[EmailHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON decodes the body, reporting malformed JSON as a validation error
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, emaildomain.NewValidationError("body", err.Error()))
		return false
	}
	return true
}
