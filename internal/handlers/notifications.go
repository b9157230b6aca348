package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/util"
)

// GetNotifications lists the signed-in user's notifications, newest first, with the
// unread count. ?unread=true restricts the list to unread items.
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	unreadOnly := util.ParseBool(c.Query("unread"))
	ctx := c.Request.Context()

	notifs, err := h.notifications.List(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		respondError(c, err, "notifications", "failed to load notifications")
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		respondError(c, err, "notifications", "failed to count notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifs,
		"unread_count":  unread,
		"meta":          pageMeta(limit, offset, len(notifs)),
	})
}

// GetUnreadNotificationCount returns the badge count
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadNotificationCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notifications", "failed to count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkNotificationRead marks one notification read
// PUT /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err, "notification", "failed to mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

// MarkAllNotificationsRead marks every notification of the signed-in user read
// PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	count, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notifications", "failed to mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": count})
}

// DeleteNotification removes one of the signed-in user's notifications
// DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err, "notification", "failed to delete notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}
