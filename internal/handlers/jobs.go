package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/util"
	"go.uber.org/zap"
)

// JobRequest is the body of POST /jobs and PUT /jobs/:id
type JobRequest struct {
	Title          string                `json:"title" binding:"required,max=200"`
	Company        string                `json:"company" binding:"required,max=200"`
	Location       string                `json:"location" binding:"max=200"`
	Remote         bool                  `json:"remote"`
	EmploymentType models.EmploymentType `json:"employment_type" binding:"required"`
	Description    string                `json:"description" binding:"required,max=20000"`
	Skills         []string              `json:"skills"`
	SalaryMin      *int                  `json:"salary_min" binding:"omitempty,min=0"`
	SalaryMax      *int                  `json:"salary_max" binding:"omitempty,min=0"`
	Status         models.JobStatus      `json:"status"`
}

// validate checks the fields the binding tags cannot express
func (r *JobRequest) validate(c *gin.Context) bool {
	if !models.ValidEmploymentType(r.EmploymentType) {
		util.RespondValidationError(c, "employment_type", "unknown employment type")
		return false
	}
	if r.SalaryMin != nil && r.SalaryMax != nil && *r.SalaryMin > *r.SalaryMax {
		util.RespondValidationError(c, "salary_max", "salary_max must not be below salary_min")
		return false
	}
	switch r.Status {
	case "", models.JobOpen, models.JobClosed:
	default:
		util.RespondValidationError(c, "status", "status must be open or closed")
		return false
	}
	if len(r.Skills) > maxSkills {
		util.RespondValidationError(c, "skills", "too many skills")
		return false
	}
	return true
}

func (r *JobRequest) apply(job *models.Job) {
	job.Title = strings.TrimSpace(r.Title)
	job.Company = strings.TrimSpace(r.Company)
	job.Location = strings.TrimSpace(r.Location)
	job.Remote = r.Remote
	job.EmploymentType = r.EmploymentType
	job.Description = strings.TrimSpace(r.Description)
	job.Skills = normalizeSkills(r.Skills)
	job.SalaryMin = r.SalaryMin
	job.SalaryMax = r.SalaryMax
	if r.Status != "" {
		job.Status = r.Status
	}
}

// ApplyRequest is the body of POST /jobs/:id/apply. ResumeURL defaults to the
// applicant's profile résumé.
type ApplyRequest struct {
	CoverLetter string `json:"cover_letter" binding:"max=5000"`
	ResumeURL   string `json:"resume_url" binding:"omitempty,url"`
}

// CreateJob publishes a job posting
// POST /api/v1/jobs
func (h *Handlers) CreateJob(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if !req.validate(c) {
		return
	}

	job := &models.Job{PosterID: user.ID}
	req.apply(job)
	if err := h.repos.Jobs.CreateJob(c.Request.Context(), job); err != nil {
		respondError(c, err, "job", "failed to create job")
		return
	}
	job.Poster = user
	h.search.IndexJob(job)

	logger.Log.Info("Job posted", logger.WithUserID(user.ID), zap.String("job_id", job.ID))
	c.JSON(http.StatusCreated, gin.H{"job": job})
}

// ListJobs lists postings with optional q, location, employment_type, status and remote
// filters. Only open postings are listed unless status says otherwise.
// GET /api/v1/jobs
func (h *Handlers) ListJobs(c *gin.Context) {
	if _, ok := util.GetUserIDFromContext(c); !ok {
		return
	}
	filter := repository.JobFilter{
		Query:          strings.TrimSpace(c.Query("q")),
		Location:       strings.TrimSpace(c.Query("location")),
		EmploymentType: models.EmploymentType(c.Query("employment_type")),
		Status:         models.JobStatus(c.DefaultQuery("status", string(models.JobOpen))),
	}
	if filter.EmploymentType != "" && !models.ValidEmploymentType(filter.EmploymentType) {
		util.RespondValidationError(c, "employment_type", "unknown employment type")
		return
	}
	switch filter.Status {
	case models.JobOpen, models.JobClosed:
	case "all":
		filter.Status = ""
	default:
		util.RespondValidationError(c, "status", "status must be open, closed or all")
		return
	}
	if remote := c.Query("remote"); remote != "" {
		v := util.ParseBool(remote)
		filter.Remote = &v
	}

	limit, offset := util.ParsePagination(c)
	jobs, err := h.repos.Jobs.ListJobs(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, err, "jobs", "failed to load jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "meta": pageMeta(limit, offset, len(jobs))})
}

// GetMyJobs lists postings by the signed-in user, open or closed
// GET /api/v1/jobs/mine
func (h *Handlers) GetMyJobs(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	jobs, err := h.repos.Jobs.ListJobs(c.Request.Context(), repository.JobFilter{PosterID: userID}, limit, offset)
	if err != nil {
		respondError(c, err, "jobs", "failed to load jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "meta": pageMeta(limit, offset, len(jobs))})
}

// GetJob returns one posting. The viewer's own application is attached when present.
// GET /api/v1/jobs/:id
func (h *Handlers) GetJob(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	job, err := h.repos.Jobs.GetJob(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "job", "failed to load job")
		return
	}

	resp := gin.H{"job": job, "is_poster": job.PosterID == userID}
	app, err := h.repos.Applications.FindApplication(ctx, job.ID, userID)
	switch {
	case err == nil:
		resp["application"] = app
	case !errors.Is(err, repository.ErrNotFound):
		respondError(c, err, "application", "failed to load application")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// posterJob loads the job in the path and checks the signed-in user posted it
func (h *Handlers) posterJob(c *gin.Context, userID string) (*models.Job, bool) {
	job, err := h.repos.Jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "job", "failed to load job")
		return nil, false
	}
	if job.PosterID != userID {
		util.RespondForbidden(c, "only the poster can manage this job")
		return nil, false
	}
	return job, true
}

// UpdateJob replaces a posting's details
// PUT /api/v1/jobs/:id
func (h *Handlers) UpdateJob(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if !req.validate(c) {
		return
	}

	job, ok := h.posterJob(c, userID)
	if !ok {
		return
	}
	req.apply(job)
	if err := h.repos.Jobs.UpdateJob(c.Request.Context(), job); err != nil {
		respondError(c, err, "job", "failed to update job")
		return
	}
	h.search.IndexJob(job)

	c.JSON(http.StatusOK, gin.H{"job": job})
}

// DeleteJob removes a posting
// DELETE /api/v1/jobs/:id
func (h *Handlers) DeleteJob(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	job, ok := h.posterJob(c, userID)
	if !ok {
		return
	}
	if err := h.repos.Jobs.DeleteJob(c.Request.Context(), job.ID); err != nil {
		respondError(c, err, "job", "failed to delete job")
		return
	}
	h.search.RemoveJob(job.ID)
	c.JSON(http.StatusOK, gin.H{"message": "job deleted"})
}

// ApplyToJob submits an application and notifies the poster
// POST /api/v1/jobs/:id/apply
func (h *Handlers) ApplyToJob(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req ApplyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.RespondBadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	job, err := h.repos.Jobs.GetJob(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "job", "failed to load job")
		return
	}
	if job.PosterID == user.ID {
		util.RespondBadRequest(c, "cannot apply to your own job")
		return
	}
	if job.Status != models.JobOpen {
		util.RespondBadRequest(c, "job is no longer accepting applications")
		return
	}

	if _, err := h.repos.Applications.FindApplication(ctx, job.ID, user.ID); err == nil {
		util.RespondConflict(c, "application")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err, "application", "failed to submit application")
		return
	}

	resume := req.ResumeURL
	if resume == "" {
		resume = user.ResumeURL
	}
	app := &models.Application{
		JobID:       job.ID,
		ApplicantID: user.ID,
		CoverLetter: strings.TrimSpace(req.CoverLetter),
		ResumeURL:   resume,
	}
	if err := h.repos.Applications.CreateApplication(ctx, app); err != nil {
		respondError(c, err, "application", "failed to submit application")
		return
	}

	h.notify(c, job.PosterID, user, models.NotificationApplication, app.ID,
		displayName(user)+" applied to "+job.Title)

	logger.Log.Info("Application submitted",
		logger.WithUserID(user.ID),
		zap.String("job_id", job.ID),
		zap.String("application_id", app.ID))
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

// GetJobApplications lists the applications to a posting, oldest first
// GET /api/v1/jobs/:id/applications
func (h *Handlers) GetJobApplications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	job, ok := h.posterJob(c, userID)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	apps, err := h.repos.Applications.ListByJob(c.Request.Context(), job.ID, limit, offset)
	if err != nil {
		respondError(c, err, "applications", "failed to load applications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "meta": pageMeta(limit, offset, len(apps))})
}
