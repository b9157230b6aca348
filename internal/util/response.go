package util

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/hirewire/backend/internal/errors"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/repository"
	"go.uber.org/zap"
)

// RespondWithAPIError writes apiErr as JSON and logs it by severity
func RespondWithAPIError(c *gin.Context, apiErr *apierrors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok {
			fields = append(fields, logger.WithRequestID(id))
		}
	}

	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.Log.Error("API error", fields...)
	case apiErr.Status >= http.StatusBadRequest:
		logger.Log.Warn("API error", fields...)
	}

	c.AbortWithStatusJSON(apiErr.Status, apiErr)
}

// RespondRepositoryError maps repository sentinels to API errors.
// Anything unrecognised becomes a 500 carrying fallback as the message.
func RespondRepositoryError(c *gin.Context, err error, resource string, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		RespondNotFound(c, resource)
	case errors.Is(err, repository.ErrDuplicate):
		RespondConflict(c, resource)
	default:
		logger.ErrorWithFields(fallback, err)
		RespondInternalError(c, fallback)
	}
}

func RespondUnauthorized(c *gin.Context, message ...string) {
	RespondWithAPIError(c, apierrors.Unauthorized(firstOr(message, "user not authenticated")))
}

func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, apierrors.NotFound(resource))
}

func RespondBadRequest(c *gin.Context, message ...string) {
	RespondWithAPIError(c, apierrors.BadRequest(firstOr(message, "bad request")))
}

func RespondForbidden(c *gin.Context, message ...string) {
	RespondWithAPIError(c, apierrors.Forbidden(firstOr(message, "forbidden")))
}

func RespondInternalError(c *gin.Context, message ...string) {
	RespondWithAPIError(c, apierrors.InternalError(firstOr(message, "internal server error")))
}

func RespondConflict(c *gin.Context, resource string) {
	RespondWithAPIError(c, apierrors.Conflict(resource))
}

func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, apierrors.ValidationError(field, message))
}

func RespondServiceUnavailable(c *gin.Context, service string) {
	RespondWithAPIError(c, apierrors.ServiceUnavailable(service))
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}
