package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/util"
	"go.uber.org/zap"
)

// Connection status as seen by one side
const (
	connectionStatusNone     = "none"
	connectionStatusSent     = "pending_sent"
	connectionStatusReceived = "pending_received"
	connectionStatusAccepted = "connected"
)

const maxConnectionNote = 300

// RequestConnectionRequest optionally carries a short note for the addressee
type RequestConnectionRequest struct {
	Note string `json:"note" binding:"max=300"`
}

func connectionStatusFor(conn *models.Connection, viewerID string) string {
	switch conn.Status {
	case models.ConnectionAccepted:
		return connectionStatusAccepted
	case models.ConnectionPending:
		if conn.RequesterID == viewerID {
			return connectionStatusSent
		}
		return connectionStatusReceived
	}
	return connectionStatusNone
}

type connectionCard struct {
	ConnectionID string             `json:"connection_id"`
	User         *models.PublicUser `json:"user,omitempty"`
	Since        time.Time          `json:"since"`
}

// connectionCards shows the other party of each accepted connection
func connectionCards(conns []models.Connection, userID string) []connectionCard {
	cards := make([]connectionCard, 0, len(conns))
	for i := range conns {
		conn := &conns[i]
		other := conn.Addressee
		if conn.AddresseeID == userID {
			other = conn.Requester
		}
		card := connectionCard{ConnectionID: conn.ID, Since: conn.UpdatedAt}
		if conn.RespondedAt != nil {
			card.Since = *conn.RespondedAt
		}
		if other != nil {
			public := other.Public()
			card.User = &public
		}
		cards = append(cards, card)
	}
	return cards
}

// RequestConnection invites another member to connect
// POST /api/v1/connections/:userId
func (h *Handlers) RequestConnection(c *gin.Context) {
	requester, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	addresseeID := c.Param("userId")
	if addresseeID == requester.ID {
		util.RespondBadRequest(c, "cannot connect with yourself")
		return
	}

	var req RequestConnectionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondBadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	if _, err := h.repos.Users.GetUser(ctx, addresseeID); err != nil {
		respondError(c, err, "user", "failed to load user")
		return
	}

	existing, err := h.repos.Connections.FindBetween(ctx, requester.ID, addresseeID)
	switch {
	case err == nil && existing.Status == models.ConnectionRejected:
		// a declined invitation may be sent again
		if err := h.repos.Connections.DeleteConnection(ctx, existing.ID); err != nil {
			respondError(c, err, "connection", "failed to send connection request")
			return
		}
	case err == nil:
		util.RespondConflict(c, "connection")
		return
	case !errors.Is(err, repository.ErrNotFound):
		respondError(c, err, "connection", "failed to send connection request")
		return
	}

	conn := &models.Connection{
		RequesterID: requester.ID,
		AddresseeID: addresseeID,
		Note:        util.Truncate(strings.TrimSpace(req.Note), maxConnectionNote),
	}
	if err := h.repos.Connections.CreateConnection(ctx, conn); err != nil {
		respondError(c, err, "connection", "failed to send connection request")
		return
	}

	h.notify(c, addresseeID, requester, models.NotificationConnectionRequest, conn.ID,
		displayName(requester)+" wants to connect")

	logger.Log.Info("Connection requested",
		logger.WithUserID(requester.ID),
		zap.String("addressee_id", addresseeID))
	c.JSON(http.StatusCreated, gin.H{"connection": conn})
}

// pendingRequestFor loads a pending request addressed to the signed-in user
func (h *Handlers) pendingRequestFor(c *gin.Context, userID string) (*models.Connection, bool) {
	conn, err := h.repos.Connections.GetConnection(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "connection request", "failed to load connection request")
		return nil, false
	}
	if conn.AddresseeID != userID {
		util.RespondForbidden(c, "only the invited member can respond")
		return nil, false
	}
	if conn.Status != models.ConnectionPending {
		util.RespondConflict(c, "connection response")
		return nil, false
	}
	return conn, true
}

// AcceptConnection accepts a pending request and notifies the requester
// POST /api/v1/connections/requests/:id/accept
func (h *Handlers) AcceptConnection(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	conn, ok := h.pendingRequestFor(c, user.ID)
	if !ok {
		return
	}

	if err := h.repos.Connections.Accept(c.Request.Context(), conn.ID); err != nil {
		respondError(c, err, "connection request", "failed to accept connection")
		return
	}

	h.notify(c, conn.RequesterID, user, models.NotificationConnectionAccepted, conn.ID,
		displayName(user)+" accepted your connection request")

	updated, err := h.repos.Connections.GetConnection(c.Request.Context(), conn.ID)
	if err != nil {
		respondError(c, err, "connection", "failed to load connection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": updated})
}

// RejectConnection declines a pending request. The requester is not told.
// POST /api/v1/connections/requests/:id/reject
func (h *Handlers) RejectConnection(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	conn, ok := h.pendingRequestFor(c, userID)
	if !ok {
		return
	}
	if err := h.repos.Connections.Reject(c.Request.Context(), conn.ID); err != nil {
		respondError(c, err, "connection request", "failed to reject connection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "connection request rejected"})
}

// RemoveConnection withdraws a pending request or removes an accepted connection
// DELETE /api/v1/connections/:userId
func (h *Handlers) RemoveConnection(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	conn, err := h.repos.Connections.FindBetween(ctx, userID, c.Param("userId"))
	if err != nil {
		respondError(c, err, "connection", "failed to load connection")
		return
	}
	if conn.Status == models.ConnectionRejected && conn.RequesterID == userID {
		// the requester never learns about a rejection
		util.RespondNotFound(c, "connection")
		return
	}
	if err := h.repos.Connections.DeleteConnection(ctx, conn.ID); err != nil {
		respondError(c, err, "connection", "failed to remove connection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "connection removed"})
}

// GetConnections lists the signed-in user's accepted connections
// GET /api/v1/connections
func (h *Handlers) GetConnections(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	conns, err := h.repos.Connections.ListConnections(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err, "connections", "failed to load connections")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connections": connectionCards(conns, userID),
		"meta":        pageMeta(limit, offset, len(conns)),
	})
}

// GetConnectionRequests lists pending invitations addressed to the signed-in user
// GET /api/v1/connections/requests
func (h *Handlers) GetConnectionRequests(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	conns, err := h.repos.Connections.ListIncoming(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err, "connection requests", "failed to load connection requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": conns, "meta": pageMeta(limit, offset, len(conns))})
}

// GetSentRequests lists invitations the signed-in user is still waiting on
// GET /api/v1/connections/sent
func (h *Handlers) GetSentRequests(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	conns, err := h.repos.Connections.ListOutgoing(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err, "connection requests", "failed to load sent requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": conns, "meta": pageMeta(limit, offset, len(conns))})
}

// GetConnectionStatus reports the relationship between the signed-in user and another member
// GET /api/v1/connections/status/:userId
func (h *Handlers) GetConnectionStatus(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	otherID := c.Param("userId")

	status := connectionStatusNone
	var connectionID string
	conn, err := h.repos.Connections.FindBetween(c.Request.Context(), userID, otherID)
	switch {
	case err == nil:
		status = connectionStatusFor(conn, userID)
		if status != connectionStatusNone {
			connectionID = conn.ID
		}
	case !errors.Is(err, repository.ErrNotFound):
		respondError(c, err, "connection", "failed to load connection status")
		return
	}

	resp := gin.H{"user_id": otherID, "status": status}
	if connectionID != "" {
		resp["connection_id"] = connectionID
	}
	c.JSON(http.StatusOK, resp)
}
