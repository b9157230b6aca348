package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/util"
)

// CreateCommentRequest is the body of POST /posts/:id/comments
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=2000"`
}

// CreateComment comments on a post, notifying its author and any mentioned members
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		util.RespondValidationError(c, "content", "comment cannot be empty")
		return
	}

	ctx := c.Request.Context()
	post, err := h.repos.Posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "post", "failed to load post")
		return
	}

	comment := &models.Comment{PostID: post.ID, UserID: user.ID, Content: content}
	if err := h.repos.Posts.CreateComment(ctx, comment); err != nil {
		respondError(c, err, "comment", "failed to create comment")
		return
	}
	comment.User = user

	h.notify(c, post.UserID, user, models.NotificationComment, post.ID,
		displayName(user)+" commented on your post: "+util.Truncate(content, 80))
	h.notifyMentions(c, user, content, post.ID)

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// GetComments lists a post's comments, oldest first
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	if _, ok := util.GetUserIDFromContext(c); !ok {
		return
	}
	ctx := c.Request.Context()
	postID := c.Param("id")
	if _, err := h.repos.Posts.GetPost(ctx, postID); err != nil {
		respondError(c, err, "post", "failed to load post")
		return
	}

	limit, offset := util.ParsePagination(c)
	comments, err := h.repos.Posts.GetComments(ctx, postID, limit, offset)
	if err != nil {
		respondError(c, err, "comments", "failed to load comments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "meta": pageMeta(limit, offset, len(comments))})
}

// DeleteComment removes a comment. Its author and the post's author may delete it.
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	comment, err := h.repos.Posts.GetComment(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "comment", "failed to load comment")
		return
	}

	if comment.UserID != userID {
		post, err := h.repos.Posts.GetPost(ctx, comment.PostID)
		if err != nil || post.UserID != userID {
			util.RespondForbidden(c, "you can only delete your own comments")
			return
		}
	}

	if err := h.repos.Posts.DeleteComment(ctx, comment.ID); err != nil {
		respondError(c, err, "comment", "failed to delete comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
