package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/notifications"
	"github.com/hirewire/backend/internal/storage"
	"github.com/hirewire/backend/internal/util"
)

// maxUploadBytes caps multipart bodies before storage validates per folder
const maxUploadBytes = storage.MaxDocumentSize + 1<<20

// receiveUpload stores the multipart field "file" in folder. It writes the error
// response itself and returns ok=false on failure.
func (h *Handlers) receiveUpload(c *gin.Context, userID string, folder storage.Folder) (*storage.UploadResult, bool) {
	if h.uploader == nil {
		util.RespondServiceUnavailable(c, "file storage")
		return nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.RespondValidationError(c, "file", "file is required")
		return nil, false
	}
	if err := storage.ValidateFile(folder, fileHeader.Filename, fileHeader.Size); err != nil {
		respondError(c, err, "file", "invalid file")
		return nil, false
	}

	src, err := fileHeader.Open()
	if err != nil {
		util.RespondInternalError(c, "failed to read upload")
		return nil, false
	}
	defer src.Close()

	result, err := h.uploader.Upload(c.Request.Context(), folder, userID, fileHeader.Filename, src, fileHeader.Size)
	if err != nil {
		respondError(c, err, "file", "failed to store upload")
		return nil, false
	}
	return result, true
}

// removeStoredFile deletes an object this service uploaded earlier; foreign URLs are kept
func (h *Handlers) removeStoredFile(url string) {
	resolver, ok := h.uploader.(interface{ KeyFromURL(string) string })
	if !ok || url == "" {
		return
	}
	key := resolver.KeyFromURL(url)
	if key == "" {
		return
	}
	go func() {
		logAsyncError("Failed to delete replaced file", h.uploader.Delete(context.Background(), key))
	}()
}

// notify stores a notification before the response is written; only the socket push is
// best-effort. A failed insert is logged by the service and does not fail the action.
// actor==recipient is skipped by the service.
func (h *Handlers) notify(c *gin.Context, recipientID string, actor *models.User, kind models.NotificationType, relatedID, message string) {
	if h.notifications == nil || actor == nil {
		return
	}
	_, _ = h.notifications.Notify(c.Request.Context(), notifications.NotifyInput{
		RecipientID: recipientID,
		SenderID:    actor.ID,
		Type:        kind,
		RelatedID:   relatedID,
		Message:     message,
	})
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return "@" + u.Username
}

// markLiked fills Post.IsLiked for viewerID
func (h *Handlers) markLiked(ctx context.Context, viewerID string, posts []models.Post) error {
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := h.repos.Posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return fmt.Errorf("failed to load likes: %w", err)
	}
	for i := range posts {
		posts[i].IsLiked = liked[posts[i].ID]
	}
	return nil
}

func pageMeta(limit, offset, count int) gin.H {
	return gin.H{
		"limit":    limit,
		"offset":   offset,
		"count":    count,
		"has_more": count == limit,
	}
}
