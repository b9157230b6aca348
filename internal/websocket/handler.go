package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/util"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*models.User, error)
}

// Handler upgrades HTTP requests to sockets.
type Handler struct {
	hub            *Hub
	auth           Authenticator
	allowedOrigins []string
}

// NewHandler creates a socket handler. An empty or "*" origin list accepts any origin.
func NewHandler(hub *Hub, auth Authenticator, allowedOrigins []string) *Handler {
	return &Handler{hub: hub, auth: auth, allowedOrigins: allowedOrigins}
}

// HandleWebSocket authenticates the request, upgrades it and joins the user's room.
// The token comes from ?token= or an Authorization: Bearer header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", zap.Error(err), logger.WithIP(c.ClientIP()))
		util.RespondUnauthorized(c, err.Error())
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.acceptOptions())
	if err != nil {
		logger.WarnWithFields("WebSocket upgrade failed", err, logger.WithUserID(user.ID))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	// Queue the welcome before joining so it is the first event the socket sees.
	_ = client.Send(NewEvent(EventSystem, SystemPayload{
		Event:   SystemConnected,
		Message: "Welcome to HireWire!",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{CompressionMode: websocket.CompressionContextTakeover}
	if len(h.allowedOrigins) == 0 {
		opts.InsecureSkipVerify = true
		return opts
	}
	for _, origin := range h.allowedOrigins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
		opts.OriginPatterns = append(opts.OriginPatterns, host)
	}
	return opts
}

func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		return nil, errors.New("no authentication token provided")
	}
	return h.auth.AuthenticateToken(c.Request.Context(), token)
}

// HandleStats reports socket statistics.
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":    h.hub.Snapshot(),
		"online_users": len(h.hub.OnlineUsers()),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus reports which of the given users have an open socket.
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	statuses := make(map[string]bool, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}
	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}
