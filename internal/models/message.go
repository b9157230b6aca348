package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is a direct message. Read is flipped only by the recipient marking the thread read.
// The bson tags are used by the document store.
type Message struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	SenderID      string    `gorm:"type:varchar(36);not null;index:idx_messages_pair,priority:1" bson:"sender_id" json:"sender_id"`
	RecipientID   string    `gorm:"type:varchar(36);not null;index:idx_messages_pair,priority:2;index:idx_messages_unread,priority:1" bson:"recipient_id" json:"recipient_id"`
	Content       string    `gorm:"type:text" bson:"content" json:"content"`
	AttachmentURL *string   `gorm:"type:text" bson:"attachment_url,omitempty" json:"attachment_url,omitempty"`
	Read          bool      `gorm:"column:is_read;not null;default:false;index:idx_messages_unread,priority:2" bson:"read" json:"read"`
	CreatedAt     time.Time `gorm:"not null;index" bson:"created_at" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = NewOrderedID()
	}
	return nil
}

// PartnerOf returns the other participant of the message as seen by userID
func (m *Message) PartnerOf(userID string) string {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

// ConversationSummary is one inbox row: the correspondent, the newest message exchanged
// with them and how many of their messages the owner has not read.
type ConversationSummary struct {
	PartnerID   string  `bson:"partner_id" json:"partner_id"`
	LastMessage Message `bson:"last_message" json:"last_message"`
	UnreadCount int64   `bson:"unread_count" json:"unread_count"`
}
