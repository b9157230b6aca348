package repository

import (
	"context"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

type ApplicationRepository interface {
	// CreateApplication inserts the application and bumps the job's application_count
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, applicationID string) (*models.Application, error)
	FindApplication(ctx context.Context, jobID, applicantID string) (*models.Application, error)
	ListByJob(ctx context.Context, jobID string, limit, offset int) ([]models.Application, error)
	ListByApplicant(ctx context.Context, applicantID string, limit, offset int) ([]models.Application, error)
	UpdateStatus(ctx context.Context, applicationID string, status models.ApplicationStatus) error
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) CreateApplication(ctx context.Context, app *models.Application) error {
	if app == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Job", "Applicant").Create(app).Error; err != nil {
			return err
		}
		return tx.Model(&models.Job{}).Where("id = ?", app.JobID).
			UpdateColumn("application_count", gorm.Expr("application_count + 1")).Error
	}))
}

func (r *applicationRepository) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Applicant").
		Where("id = ?", applicationID).
		First(&app).Error
	if err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (r *applicationRepository) FindApplication(ctx context.Context, jobID, applicantID string) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND applicant_id = ?", jobID, applicantID).
		First(&app).Error
	if err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (r *applicationRepository) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]models.Application, error) {
	limit, offset = clampPage(limit, offset)
	var apps []models.Application
	err := r.db.WithContext(ctx).
		Preload("Applicant").
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&apps).Error
	return apps, translate(err)
}

func (r *applicationRepository) ListByApplicant(ctx context.Context, applicantID string, limit, offset int) ([]models.Application, error) {
	limit, offset = clampPage(limit, offset)
	var apps []models.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		Where("applicant_id = ?", applicantID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&apps).Error
	return apps, translate(err)
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, applicationID string, status models.ApplicationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", applicationID).
		Update("status", status)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
