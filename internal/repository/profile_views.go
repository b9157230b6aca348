package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

type ProfileViewRepository interface {
	// RecordView stores a view of profileID by viewerID. A repeat view inside window only
	// refreshes the timestamp; created reports whether a new view row was written.
	RecordView(ctx context.Context, profileID, viewerID string, window time.Duration) (created bool, err error)
	ListViews(ctx context.Context, profileID string, limit, offset int) ([]models.ProfileView, error)
	CountViewsSince(ctx context.Context, profileID string, since time.Time) (int64, error)
}

type profileViewRepository struct {
	db *gorm.DB
}

func NewProfileViewRepository(db *gorm.DB) ProfileViewRepository {
	return &profileViewRepository{db: db}
}

func (r *profileViewRepository) RecordView(ctx context.Context, profileID, viewerID string, window time.Duration) (bool, error) {
	if profileID == "" || viewerID == "" || profileID == viewerID {
		return false, ErrInvalidInput
	}
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := tx.NowFunc()
		var recent models.ProfileView
		err := tx.Where("profile_id = ? AND viewer_id = ? AND viewed_at > ?", profileID, viewerID, now.Add(-window)).
			Order("viewed_at DESC").
			First(&recent).Error
		switch {
		case err == nil:
			return tx.Model(&recent).Update("viewed_at", now).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			return tx.Create(&models.ProfileView{ProfileID: profileID, ViewerID: viewerID, ViewedAt: now}).Error
		default:
			return err
		}
	})
	return created, translate(err)
}

func (r *profileViewRepository) ListViews(ctx context.Context, profileID string, limit, offset int) ([]models.ProfileView, error) {
	limit, offset = clampPage(limit, offset)
	var views []models.ProfileView
	err := r.db.WithContext(ctx).
		Preload("Viewer").
		Where("profile_id = ?", profileID).
		Order("viewed_at DESC").
		Limit(limit).Offset(offset).
		Find(&views).Error
	return views, translate(err)
}

func (r *profileViewRepository) CountViewsSince(ctx context.Context, profileID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProfileView{}).
		Where("profile_id = ? AND viewed_at >= ?", profileID, since).
		Count(&count).Error
	return count, translate(err)
}
