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
	"github.com/hirewire/backend/internal/storage"
	"github.com/hirewire/backend/internal/util"
	"go.uber.org/zap"
)

const maxSkills = 50

// UpdateProfileRequest carries the editable profile fields. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name     *string   `json:"name" binding:"omitempty,min=1,max=100"`
	Headline *string   `json:"headline" binding:"omitempty,max=200"`
	Bio      *string   `json:"bio" binding:"omitempty,max=2000"`
	Location *string   `json:"location" binding:"omitempty,max=100"`
	Company  *string   `json:"company" binding:"omitempty,max=100"`
	Website  *string   `json:"website" binding:"omitempty,url,max=255"`
	Skills   *[]string `json:"skills"`
}

// resolveUser accepts either a user id or a username in the path
func (h *Handlers) resolveUser(c *gin.Context, idOrUsername string) (*models.User, error) {
	ctx := c.Request.Context()
	user, err := h.repos.Users.GetUser(ctx, idOrUsername)
	if errors.Is(err, repository.ErrNotFound) {
		return h.repos.Users.GetUserByUsername(ctx, idOrUsername)
	}
	return user, err
}

// GetUserProfile returns a member's profile. Viewing someone else's profile records a
// profile view and, once per window, notifies the owner.
// GET /api/v1/users/:id
func (h *Handlers) GetUserProfile(c *gin.Context) {
	viewer, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	user, err := h.resolveUser(c, c.Param("id"))
	if err != nil {
		respondError(c, err, "user", "failed to load user")
		return
	}

	if user.ID == viewer.ID {
		c.JSON(http.StatusOK, gin.H{"user": user, "is_own_profile": true})
		return
	}

	ctx := c.Request.Context()
	created, err := h.repos.ProfileViews.RecordView(ctx, user.ID, viewer.ID, h.profileViewWindow)
	if err != nil {
		logger.WarnWithFields("Failed to record profile view", err)
	} else if created {
		h.notify(c, user.ID, viewer, models.NotificationProfileView, viewer.ID,
			displayName(viewer)+" viewed your profile")
	}

	status := "none"
	if conn, err := h.repos.Connections.FindBetween(ctx, viewer.ID, user.ID); err == nil {
		status = connectionStatusFor(conn, viewer.ID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err, "connection", "failed to load connection status")
		return
	}

	// email stays private to its owner
	user.Email = ""
	c.JSON(http.StatusOK, gin.H{
		"user":              user,
		"is_own_profile":    false,
		"connection_status": status,
	})
}

// UpdateProfile edits the signed-in user's profile
// PUT /api/v1/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	user, err := h.repos.Users.GetUser(ctx, userID)
	if err != nil {
		respondError(c, err, "user", "failed to load user")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			util.RespondValidationError(c, "name", "name cannot be blank")
			return
		}
		user.Name = name
	}
	if req.Headline != nil {
		user.Headline = strings.TrimSpace(*req.Headline)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Location != nil {
		user.Location = strings.TrimSpace(*req.Location)
	}
	if req.Company != nil {
		user.Company = strings.TrimSpace(*req.Company)
	}
	if req.Website != nil {
		user.Website = strings.TrimSpace(*req.Website)
	}
	if req.Skills != nil {
		skills := normalizeSkills(*req.Skills)
		if len(skills) > maxSkills {
			util.RespondValidationError(c, "skills", "too many skills")
			return
		}
		user.Skills = skills
	}

	if err := h.repos.Users.UpdateUser(ctx, user); err != nil {
		respondError(c, err, "user", "failed to update profile")
		return
	}
	h.search.IndexUser(user)

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// normalizeSkills trims, drops blanks and removes case-insensitive duplicates
func normalizeSkills(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// DeleteAccount removes the signed-in user along with their inbox and notifications
// DELETE /api/v1/users/me
func (h *Handlers) DeleteAccount(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.repos.Users.DeleteUser(ctx, user.ID); err != nil {
		respondError(c, err, "user", "failed to delete account")
		return
	}
	if err := h.messaging.DeleteAllForUser(ctx, user.ID); err != nil {
		logger.WarnWithFields("Failed to delete messages of removed account", err, logger.WithUserID(user.ID))
	}
	if err := h.notifications.DeleteAllForUser(ctx, user.ID); err != nil {
		logger.WarnWithFields("Failed to delete notifications of removed account", err, logger.WithUserID(user.ID))
	}
	if h.realtime != nil {
		h.realtime.DisconnectUser(user.ID)
	}
	h.search.RemoveUser(user.ID)
	h.removeStoredFile(user.ProfilePictureURL)
	h.removeStoredFile(user.CoverPictureURL)
	h.removeStoredFile(user.ResumeURL)

	logger.Log.Info("Account deleted", logger.WithUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

// UploadAvatar replaces the profile picture
// POST /api/v1/users/me/avatar
func (h *Handlers) UploadAvatar(c *gin.Context) {
	h.uploadProfileFile(c, storage.FolderAvatars, "profile_picture_url")
}

// UploadCover replaces the cover picture
// POST /api/v1/users/me/cover
func (h *Handlers) UploadCover(c *gin.Context) {
	h.uploadProfileFile(c, storage.FolderCovers, "cover_picture_url")
}

// UploadResume replaces the résumé document
// POST /api/v1/users/me/resume
func (h *Handlers) UploadResume(c *gin.Context) {
	h.uploadProfileFile(c, storage.FolderResumes, "resume_url")
}

func (h *Handlers) uploadProfileFile(c *gin.Context, folder storage.Folder, column string) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	result, ok := h.receiveUpload(c, user.ID, folder)
	if !ok {
		return
	}

	var previous string
	switch column {
	case "profile_picture_url":
		previous, user.ProfilePictureURL = user.ProfilePictureURL, result.URL
	case "cover_picture_url":
		previous, user.CoverPictureURL = user.CoverPictureURL, result.URL
	case "resume_url":
		previous, user.ResumeURL = user.ResumeURL, result.URL
	}

	if err := h.repos.Users.UpdateUserFields(c.Request.Context(), user.ID, map[string]interface{}{column: result.URL}); err != nil {
		respondError(c, err, "user", "failed to save upload")
		return
	}
	h.removeStoredFile(previous)
	if folder != storage.FolderResumes {
		h.search.IndexUser(user)
	}

	logger.Log.Info("Profile file uploaded",
		logger.WithUserID(user.ID),
		zap.String("folder", string(folder)),
		zap.Int64("size", result.Size))
	c.JSON(http.StatusOK, gin.H{"url": result.URL, "user": user})
}

// GetProfileViews lists who viewed the signed-in user's profile, newest first
// GET /api/v1/users/me/profile-views
func (h *Handlers) GetProfileViews(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	ctx := c.Request.Context()

	views, err := h.repos.ProfileViews.ListViews(ctx, userID, limit, offset)
	if err != nil {
		respondError(c, err, "profile views", "failed to load profile views")
		return
	}
	lastWeek, err := h.repos.ProfileViews.CountViewsSince(ctx, userID, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		respondError(c, err, "profile views", "failed to count profile views")
		return
	}

	type viewEntry struct {
		Viewer   *models.PublicUser `json:"viewer,omitempty"`
		ViewedAt time.Time          `json:"viewed_at"`
	}
	entries := make([]viewEntry, 0, len(views))
	for i := range views {
		entry := viewEntry{ViewedAt: views[i].ViewedAt}
		if views[i].Viewer != nil {
			card := views[i].Viewer.Public()
			entry.Viewer = &card
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"views":    entries,
		"views_7d": lastWeek,
		"meta":     pageMeta(limit, offset, len(entries)),
	})
}

// GetUserPosts lists a member's posts, newest first
// GET /api/v1/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	viewerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	user, err := h.resolveUser(c, c.Param("id"))
	if err != nil {
		respondError(c, err, "user", "failed to load user")
		return
	}

	limit, offset := util.ParsePagination(c)
	posts, err := h.repos.Posts.GetUserPosts(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		respondError(c, err, "posts", "failed to load posts")
		return
	}
	if err := h.markLiked(c.Request.Context(), viewerID, posts); err != nil {
		util.RespondInternalError(c, "failed to load posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "meta": pageMeta(limit, offset, len(posts))})
}

// GetUserConnections lists a member's accepted connections as public cards
// GET /api/v1/users/:id/connections
func (h *Handlers) GetUserConnections(c *gin.Context) {
	if _, ok := util.GetUserIDFromContext(c); !ok {
		return
	}
	user, err := h.resolveUser(c, c.Param("id"))
	if err != nil {
		respondError(c, err, "user", "failed to load user")
		return
	}

	limit, offset := util.ParsePagination(c)
	conns, err := h.repos.Connections.ListConnections(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		respondError(c, err, "connections", "failed to load connections")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connections": connectionCards(conns, user.ID),
		"meta":        pageMeta(limit, offset, len(conns)),
	})
}
