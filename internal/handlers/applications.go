package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/util"
)

// UpdateApplicationStatusRequest is the body of PUT /applications/:id/status
type UpdateApplicationStatusRequest struct {
	Status models.ApplicationStatus `json:"status" binding:"required"`
}

// GetMyApplications lists the signed-in user's applications, newest first
// GET /api/v1/applications/mine
func (h *Handlers) GetMyApplications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	apps, err := h.repos.Applications.ListByApplicant(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err, "applications", "failed to load applications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "meta": pageMeta(limit, offset, len(apps))})
}

// UpdateApplicationStatus moves an application through review. Poster only; the
// applicant is notified.
// PUT /api/v1/applications/:id/status
func (h *Handlers) UpdateApplicationStatus(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req UpdateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if !req.Status.PosterSettable() {
		util.RespondValidationError(c, "status", "status must be reviewing, interview, offered or rejected")
		return
	}

	ctx := c.Request.Context()
	app, err := h.repos.Applications.GetApplication(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "application", "failed to load application")
		return
	}
	if app.Job == nil || app.Job.PosterID != user.ID {
		util.RespondForbidden(c, "only the job poster can update applications")
		return
	}
	if app.Status == models.ApplicationWithdrawn {
		util.RespondBadRequest(c, "application was withdrawn")
		return
	}
	if app.Status == req.Status {
		c.JSON(http.StatusOK, gin.H{"application": app})
		return
	}

	if err := h.repos.Applications.UpdateStatus(ctx, app.ID, req.Status); err != nil {
		respondError(c, err, "application", "failed to update application")
		return
	}
	app.Status = req.Status

	h.notify(c, app.ApplicantID, user, models.NotificationApplicationStatus, app.ID,
		fmt.Sprintf("Your application for %s is now %s", app.Job.Title, req.Status))

	c.JSON(http.StatusOK, gin.H{"application": app})
}

// WithdrawApplication lets the applicant withdraw
// DELETE /api/v1/applications/:id
func (h *Handlers) WithdrawApplication(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	app, err := h.repos.Applications.GetApplication(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "application", "failed to load application")
		return
	}
	if app.ApplicantID != userID {
		util.RespondForbidden(c, "only the applicant can withdraw")
		return
	}
	if app.Status == models.ApplicationWithdrawn {
		util.RespondConflict(c, "withdrawal")
		return
	}
	if err := h.repos.Applications.UpdateStatus(ctx, app.ID, models.ApplicationWithdrawn); err != nil {
		respondError(c, err, "application", "failed to withdraw application")
		return
	}
	app.Status = models.ApplicationWithdrawn
	c.JSON(http.StatusOK, gin.H{"application": app})
}
