package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/messaging"
	"github.com/hirewire/backend/internal/storage"
	"github.com/hirewire/backend/internal/util"
)

// SendMessageRequest is the JSON form of POST /messages. The multipart form carries the
// same fields plus an optional "file" attachment.
type SendMessageRequest struct {
	RecipientID   string  `json:"recipient_id" form:"recipient_id" binding:"required"`
	Content       string  `json:"content" form:"content"`
	AttachmentURL *string `json:"attachment_url" form:"-" binding:"omitempty,url"`
}

// SendMessage stores a direct message and pushes it to the recipient's room
// POST /api/v1/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	senderID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	multipart := strings.HasPrefix(c.ContentType(), "multipart/form-data")
	if multipart {
		if err := c.ShouldBind(&req); err != nil {
			util.RespondBadRequest(c, err.Error())
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if multipart {
		if _, err := c.FormFile("file"); err == nil {
			result, ok := h.receiveUpload(c, senderID, storage.FolderAttachments)
			if !ok {
				return
			}
			req.AttachmentURL = &result.URL
		}
	}

	msg, err := h.messaging.Send(c.Request.Context(), messaging.SendInput{
		SenderID:      senderID,
		RecipientID:   req.RecipientID,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		respondError(c, err, "message", "failed to send message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetConversations returns the inbox: one row per correspondent, newest first
// GET /api/v1/messages/conversations
func (h *Handlers) GetConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	conversations, err := h.messaging.Conversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "conversations", "failed to load conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// GetUnreadMessageCount counts unread messages addressed to the signed-in user
// GET /api/v1/messages/unread-count
func (h *Handlers) GetUnreadMessageCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	count, err := h.messaging.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "messages", "failed to count unread messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// GetThread returns the conversation with another member, oldest first.
// limit=0 (the default) returns the whole thread.
// GET /api/v1/messages/:userId
func (h *Handlers) GetThread(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	partnerID := c.Param("userId")

	limit := util.ParseInt(c.Query("limit"), 0)
	offset := util.ParseInt(c.Query("offset"), 0)
	if limit < 0 || offset < 0 {
		util.RespondBadRequest(c, "limit and offset must not be negative")
		return
	}
	if limit > util.MaxPageSize {
		limit = util.MaxPageSize
	}

	thread, err := h.messaging.Thread(c.Request.Context(), userID, partnerID, limit, offset)
	if err != nil {
		respondError(c, err, "messages", "failed to load conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": thread, "partner_id": partnerID})
}

// MarkThreadRead marks every message from the other member as read
// PUT /api/v1/messages/:userId/read
func (h *Handlers) MarkThreadRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	count, err := h.messaging.MarkThreadRead(c.Request.Context(), userID, c.Param("userId"))
	if err != nil {
		respondError(c, err, "messages", "failed to mark messages read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": count})
}

// DeleteMessage removes a message the signed-in user sent
// DELETE /api/v1/messages/:id
func (h *Handlers) DeleteMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.messaging.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, "message", "failed to delete message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}
