package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationLike               NotificationType = "like"
	NotificationComment            NotificationType = "comment"
	NotificationShare              NotificationType = "share"
	NotificationMention            NotificationType = "mention"
	NotificationConnectionRequest  NotificationType = "connection_request"
	NotificationConnectionAccepted NotificationType = "connection_accepted"
	NotificationApplication        NotificationType = "application"
	NotificationApplicationStatus  NotificationType = "application_status"
	NotificationProfileView        NotificationType = "profile_view"
)

// Notification is an activity item for Recipient. SenderID is nil for system notifications.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	RecipientID string           `gorm:"type:varchar(36);not null;index:idx_notifications_recipient,priority:1" bson:"recipient_id" json:"recipient_id"`
	SenderID    *string          `gorm:"type:varchar(36);index" bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	Type        NotificationType `gorm:"type:varchar(32);not null" bson:"type" json:"type"`
	RelatedID   *string          `gorm:"type:varchar(36)" bson:"related_id,omitempty" json:"related_id,omitempty"`
	Message     string           `gorm:"type:text;not null" bson:"message" json:"message"`
	Read        bool             `gorm:"column:is_read;not null;default:false;index:idx_notifications_recipient,priority:2" bson:"read" json:"read"`
	CreatedAt   time.Time        `gorm:"not null;index" bson:"created_at" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = NewOrderedID()
	}
	return nil
}
