package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sharide/internal/repository"
	"sharide/internal/services"
)

// errorStatus maps service and repository errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrTransactionNotRecorded):
		return http.StatusInternalServerError
	case errors.Is(err, services.ErrInvalidScore),
		errors.Is(err, services.ErrMissingUser),
		errors.Is(err, services.ErrSelfRating),
		errors.Is(err, services.ErrImmutableField),
		errors.Is(err, services.ErrEmptyUpdate),
		errors.Is(err, repository.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnknownCollection),
		errors.Is(err, services.ErrRecordNotFound),
		errors.Is(err, services.ErrAdminNotFound),
		errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}
