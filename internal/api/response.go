package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"FeedbackScanner/internal/domain"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Status string   `json:"status"`
	Error  apiError `json:"error"`
}

func writeSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{"status": "success", "data": data})
}

func writeError(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, errorEnvelope{
		Status: "error",
		Error:  apiError{Code: code, Message: message},
	})
}

// writeDomainError maps sentinel errors onto HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrSourceNotConfigured):
		writeError(c, http.StatusBadRequest, "source_not_configured", err.Error())
	case errors.Is(err, domain.ErrEmptyUpload):
		writeError(c, http.StatusBadRequest, "empty_upload", err.Error())
	case errors.Is(err, domain.ErrTrackerUnavailable):
		writeError(c, http.StatusBadRequest, "tracker_unavailable", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal", err.Error())
	}
}
