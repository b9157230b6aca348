package repository

import (
	"context"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository stores activity notifications. Implemented by the GORM store
// here and by the MongoDB store in mongostore.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, notificationID string) (*models.Notification, error)
	// ListNotifications returns recipientID's notifications newest first
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	// MarkRead only touches a notification owned by recipientID
	MarkRead(ctx context.Context, notificationID, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	DeleteNotification(ctx context.Context, notificationID, recipientID string) error
	DeleteUserNotifications(ctx context.Context, userID string) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(n).Error)
}

func (r *notificationRepository) GetNotification(ctx context.Context, notificationID string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", notificationID).First(&n).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (r *notificationRepository) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, translate(err)
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, translate(err)
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	var n models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		First(&n).Error
	if err != nil {
		return translate(err)
	}
	if n.Read {
		return nil
	}
	return translate(r.db.WithContext(ctx).Model(&n).Update("is_read", true).Error)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return result.RowsAffected, translate(result.Error)
}

func (r *notificationRepository) DeleteNotification(ctx context.Context, notificationID, recipientID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteUserNotifications(ctx context.Context, userID string) error {
	return translate(r.db.WithContext(ctx).
		Where("recipient_id = ? OR sender_id = ?", userID, userID).
		Delete(&models.Notification{}).Error)
}
