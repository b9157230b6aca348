package repository

import (
	"context"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

// JobFilter narrows ListJobs. Empty fields are ignored.
type JobFilter struct {
	Query          string
	Location       string
	EmploymentType models.EmploymentType
	Status         models.JobStatus
	Remote         *bool
	PosterID       string
}

type JobRepository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, filter JobFilter, limit, offset int) ([]models.Job, error)
	GetJobs(ctx context.Context, jobIDs []string) ([]models.Job, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) CreateJob(ctx context.Context, job *models.Job) error {
	if job == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(job).Error)
}

func (r *jobRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Preload("Poster").Where("id = ?", jobID).First(&job).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

func (r *jobRepository) UpdateJob(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Omit("Poster").Save(job).Error)
}

func (r *jobRepository) DeleteJob(ctx context.Context, jobID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", jobID).Delete(&models.Job{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobs returns matching postings newest first. Query pattern-matches title,
// company, description and skills.
func (r *jobRepository) ListJobs(ctx context.Context, filter JobFilter, limit, offset int) ([]models.Job, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Preload("Poster")
	if filter.Query != "" {
		p := likePattern(filter.Query)
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(skills) LIKE ? ESCAPE '\')`, p, p, p, p)
	}
	if filter.Location != "" {
		q = q.Where(`LOWER(location) LIKE ? ESCAPE '\'`, likePattern(filter.Location))
	}
	if filter.EmploymentType != "" {
		q = q.Where("employment_type = ?", filter.EmploymentType)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Remote != nil {
		q = q.Where("remote = ?", *filter.Remote)
	}
	if filter.PosterID != "" {
		q = q.Where("poster_id = ?", filter.PosterID)
	}
	var jobs []models.Job
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error
	return jobs, translate(err)
}

func (r *jobRepository) GetJobs(ctx context.Context, jobIDs []string) ([]models.Job, error) {
	var jobs []models.Job
	if len(jobIDs) == 0 {
		return jobs, nil
	}
	err := r.db.WithContext(ctx).Preload("Poster").Where("id IN ?", jobIDs).Find(&jobs).Error
	return jobs, translate(err)
}
