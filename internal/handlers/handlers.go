// Package handlers implements the REST API under /api/v1.
package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/auth"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/messaging"
	"github.com/hirewire/backend/internal/notifications"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/search"
	"github.com/hirewire/backend/internal/storage"
	"github.com/hirewire/backend/internal/util"
	"github.com/hirewire/backend/internal/websocket"
)

const defaultProfileViewWindow = time.Hour

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	repos         *repository.Repositories
	auth          *auth.Service
	messaging     *messaging.Service
	notifications *notifications.Service
	search        *search.Service
	uploader      storage.Uploader
	realtime      websocket.Emitter
	healthChecks  map[string]HealthCheck

	profileViewWindow time.Duration
}

// Dependencies wires NewHandlers. Uploader may be nil, in which case upload endpoints
// answer 503. Search may be nil; a database-only search service is used.
type Dependencies struct {
	Repos             *repository.Repositories
	Auth              *auth.Service
	Messaging         *messaging.Service
	Notifications     *notifications.Service
	Search            *search.Service
	Uploader          storage.Uploader
	Realtime          websocket.Emitter
	ProfileViewWindow time.Duration
	// HealthChecks are probed by GET /health, keyed by dependency name
	HealthChecks map[string]HealthCheck
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Dependencies) *Handlers {
	h := &Handlers{
		repos:             deps.Repos,
		auth:              deps.Auth,
		messaging:         deps.Messaging,
		notifications:     deps.Notifications,
		search:            deps.Search,
		uploader:          deps.Uploader,
		realtime:          deps.Realtime,
		healthChecks:      deps.HealthChecks,
		profileViewWindow: deps.ProfileViewWindow,
	}
	if h.search == nil {
		h.search = search.NewService(nil, deps.Repos)
	}
	if h.profileViewWindow <= 0 {
		h.profileViewWindow = defaultProfileViewWindow
	}
	return h
}

// respondError maps domain sentinels to API errors
func respondError(c *gin.Context, err error, resource, fallback string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		util.RespondUnauthorized(c, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		util.RespondValidationError(c, "email", err.Error())
	case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrInvalidUsername):
		util.RespondValidationError(c, "username", err.Error())
	case errors.Is(err, auth.ErrWeakPassword):
		util.RespondValidationError(c, "password", err.Error())
	case errors.Is(err, auth.ErrInvalidCode), errors.Is(err, auth.ErrTooManyAttempts):
		util.RespondValidationError(c, "code", err.Error())
	case errors.Is(err, auth.ErrAlreadyVerified):
		util.RespondBadRequest(c, err.Error())

	case errors.Is(err, messaging.ErrEmptyMessage), errors.Is(err, messaging.ErrContentTooLong):
		util.RespondValidationError(c, "content", err.Error())
	case errors.Is(err, messaging.ErrSelfMessage):
		util.RespondValidationError(c, "recipient_id", err.Error())
	case errors.Is(err, messaging.ErrRecipientNotFound):
		util.RespondNotFound(c, "recipient")
	case errors.Is(err, messaging.ErrNotSender):
		util.RespondForbidden(c, err.Error())

	case errors.Is(err, storage.ErrEmptyFile), errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrFileTooLarge):
		util.RespondValidationError(c, "file", err.Error())

	case errors.Is(err, search.ErrUnknownType):
		util.RespondValidationError(c, "type", err.Error())

	case errors.Is(err, repository.ErrInvalidInput):
		util.RespondBadRequest(c, err.Error())
	default:
		util.RespondRepositoryError(c, err, resource, fallback)
	}
}

func logAsyncError(msg string, err error) {
	if err != nil {
		logger.WarnWithFields(msg, err)
	}
}
