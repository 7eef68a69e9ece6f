package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/food-delivery-app/services"
	"github.com/yeremiapane/food-delivery-app/utils"
)

var ErrNoPermission = &CustomError{"You do not have permission"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// statusForError maps service error kinds to HTTP codes. Validation is
// checked before not-found because unresolved references in a request body
// are a client error, not a missing resource.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrDuplicatePayment),
		errors.Is(err, services.ErrStatusTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(c *gin.Context, err error) {
	code := statusForError(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	utils.RespondError(c, code, err)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, &CustomError{"invalid " + param})
		return 0, false
	}
	return uint(id), true
}
