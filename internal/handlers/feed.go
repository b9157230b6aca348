package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/util"
	"go.uber.org/zap"
)

const maxPostLength = 3000

// CreatePostRequest is the body of POST /posts
type CreatePostRequest struct {
	Content  string `json:"content" binding:"max=3000"`
	ImageURL string `json:"image_url" binding:"omitempty,url"`
}

// UpdatePostRequest is the body of PUT /posts/:id
type UpdatePostRequest struct {
	Content string `json:"content" binding:"required,max=3000"`
}

// SharePostRequest optionally adds commentary to a share
type SharePostRequest struct {
	Content string `json:"content" binding:"max=3000"`
}

// CreatePost publishes a post and notifies mentioned members
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" {
		util.RespondValidationError(c, "content", "post cannot be empty")
		return
	}

	post := &models.Post{UserID: user.ID, Content: content, ImageURL: req.ImageURL}
	if err := h.repos.Posts.CreatePost(c.Request.Context(), post); err != nil {
		respondError(c, err, "post", "failed to create post")
		return
	}
	post.User = user

	h.search.IndexPost(post)
	h.notifyMentions(c, user, content, post.ID)

	logger.Log.Info("Post created", logger.WithUserID(user.ID), zap.String("post_id", post.ID))
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// notifyMentions sends a mention notification to every existing @username in content
func (h *Handlers) notifyMentions(c *gin.Context, author *models.User, content, postID string) {
	usernames := util.ExtractMentions(content)
	if len(usernames) == 0 {
		return
	}
	users, err := h.repos.Users.GetUsersByUsernames(c.Request.Context(), usernames)
	if err != nil {
		logger.WarnWithFields("Failed to resolve mentions", err, logger.WithUserID(author.ID))
		return
	}
	for i := range users {
		h.notify(c, users[i].ID, author, models.NotificationMention, postID,
			displayName(author)+" mentioned you in a post")
	}
}

// GetFeed returns posts by the signed-in user and their connections, newest first
// GET /api/v1/posts/feed
func (h *Handlers) GetFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	authors, err := h.repos.Connections.ConnectedUserIDs(ctx, userID)
	if err != nil {
		respondError(c, err, "feed", "failed to load feed")
		return
	}
	authors = append(authors, userID)

	limit, offset := util.ParsePagination(c)
	posts, err := h.repos.Posts.GetFeed(ctx, authors, limit, offset)
	if err != nil {
		respondError(c, err, "feed", "failed to load feed")
		return
	}
	if err := h.markLiked(ctx, userID, posts); err != nil {
		util.RespondInternalError(c, "failed to load feed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "meta": pageMeta(limit, offset, len(posts))})
}

// GetPost returns one post
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	post, err := h.repos.Posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "post", "failed to load post")
		return
	}
	posts := []models.Post{*post}
	if err := h.markLiked(c.Request.Context(), userID, posts); err != nil {
		util.RespondInternalError(c, "failed to load post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": posts[0]})
}

// ownPost loads the post in the path and checks the signed-in user wrote it
func (h *Handlers) ownPost(c *gin.Context, userID string) (*models.Post, bool) {
	post, err := h.repos.Posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "post", "failed to load post")
		return nil, false
	}
	if post.UserID != userID {
		util.RespondForbidden(c, "you can only modify your own posts")
		return nil, false
	}
	return post, true
}

// UpdatePost edits the text of the signed-in user's post
// PUT /api/v1/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		util.RespondValidationError(c, "content", "post cannot be empty")
		return
	}

	post, ok := h.ownPost(c, userID)
	if !ok {
		return
	}
	if err := h.repos.Posts.UpdatePostContent(c.Request.Context(), post.ID, content); err != nil {
		respondError(c, err, "post", "failed to update post")
		return
	}
	post.Content = content
	h.search.IndexPost(post)

	c.JSON(http.StatusOK, gin.H{"post": post})
}

// DeletePost removes the signed-in user's post
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	post, ok := h.ownPost(c, userID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.repos.Posts.DeletePost(ctx, post.ID); err != nil {
		respondError(c, err, "post", "failed to delete post")
		return
	}
	if post.SharedPostID != nil {
		logAsyncError("Failed to decrement share count",
			h.repos.Posts.IncrementCounter(ctx, *post.SharedPostID, repository.CounterShares, -1))
	}
	h.search.RemovePost(post.ID)

	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

// ToggleLike likes or unlikes a post. Only a new like notifies the author.
// POST /api/v1/posts/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	post, err := h.repos.Posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "post", "failed to load post")
		return
	}

	liked, err := h.repos.Posts.ToggleLike(ctx, post.ID, user.ID)
	if err != nil {
		respondError(c, err, "like", "failed to update like")
		return
	}
	likeCount := post.LikeCount - 1
	if liked {
		likeCount = post.LikeCount + 1
		h.notify(c, post.UserID, user, models.NotificationLike, post.ID,
			displayName(user)+" liked your post")
	}
	if likeCount < 0 {
		likeCount = 0
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": likeCount})
}

// SharePost reshares a post onto the signed-in user's timeline
// POST /api/v1/posts/:id/share
func (h *Handlers) SharePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req SharePostRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondBadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	original, err := h.repos.Posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "post", "failed to load post")
		return
	}
	// sharing a share points at the original
	if original.SharedPostID != nil && original.SharedPost != nil {
		original = original.SharedPost
	}

	share := &models.Post{
		UserID:       user.ID,
		Content:      util.Truncate(strings.TrimSpace(req.Content), maxPostLength),
		SharedPostID: &original.ID,
	}
	if err := h.repos.Posts.CreatePost(ctx, share); err != nil {
		respondError(c, err, "post", "failed to share post")
		return
	}
	if err := h.repos.Posts.IncrementCounter(ctx, original.ID, repository.CounterShares, 1); err != nil {
		logger.WarnWithFields("Failed to increment share count", err, zap.String("post_id", original.ID))
	}
	share.User = user
	share.SharedPost = original

	h.search.IndexPost(share)
	h.notify(c, original.UserID, user, models.NotificationShare, share.ID,
		displayName(user)+" shared your post")

	c.JSON(http.StatusCreated, gin.H{"post": share})
}
