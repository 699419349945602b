package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/assessment-bulk/internal/application/service"
	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
	"github.com/garyjia/assessment-bulk/internal/domain/workflow"
)

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, bulk.ErrRowNotFound),
		errors.Is(err, bulk.ErrAttributeNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrNotConfirmed),
		errors.Is(err, service.ErrUnsavedChanges),
		errors.Is(err, service.ErrSessionClosed),
		errors.Is(err, service.ErrNotEditable),
		errors.Is(err, service.ErrTaskInProgress),
		errors.Is(err, service.ErrNothingToComplete),
		errors.Is(err, service.ErrNothingToSave),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusConflict

	case errors.Is(err, bulk.ErrAttributeIndex),
		errors.Is(err, bulk.ErrNotApplicable),
		errors.Is(err, bulk.ErrNoRequiredInfo),
		errors.Is(err, attribute.ErrInvalidValue),
		errors.Is(err, attribute.ErrInvalidType),
		errors.Is(err, service.ErrInvalidURL):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrLoadFailed),
		errors.Is(err, service.ErrEnqueueFailed),
		errors.Is(err, service.ErrUploadFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handlers) fail(c *gin.Context, err error, confirmation string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, Response{
		Success:      false,
		Error:        err.Error(),
		Confirmation: confirmation,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   message,
	})
}
