package repository

import (
	"context"
	"time"

	"github.com/hirewire/backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository stores direct messages. Implemented by the GORM store here and by
// the MongoDB store in mongostore.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, messageID string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	// GetThread returns the messages exchanged between a and b ordered by created_at
	// ascending. limit <= 0 returns the whole thread.
	GetThread(ctx context.Context, a, b string, limit, offset int) ([]models.Message, error)
	// MarkThreadRead sets read on every message sent by senderID to readerID
	MarkThreadRead(ctx context.Context, readerID, senderID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// GetConversations groups userID's messages by correspondent: newest message and
	// unread tally per partner, newest conversation first
	GetConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	DeleteUserMessages(ctx context.Context, userID string) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(msg).Error)
}

func (r *messageRepository) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).Where("id = ?", messageID).First(&msg).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *messageRepository) DeleteMessage(ctx context.Context, messageID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", messageID).Delete(&models.Message{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *messageRepository) GetThread(ctx context.Context, a, b string, limit, offset int) ([]models.Message, error) {
	q := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var msgs []models.Message
	err := q.Find(&msgs).Error
	return msgs, translate(err)
}

func (r *messageRepository) MarkThreadRead(ctx context.Context, readerID, senderID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", senderID, readerID, false).
		Update("is_read", true)
	return result.RowsAffected, translate(result.Error)
}

func (r *messageRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, translate(err)
}

const conversationsQuery = `
SELECT messages.*, ranked.partner_id, ranked.unread_count
FROM messages
JOIN (
	SELECT id,
		CASE WHEN sender_id = @user THEN recipient_id ELSE sender_id END AS partner_id,
		ROW_NUMBER() OVER (
			PARTITION BY CASE WHEN sender_id = @user THEN recipient_id ELSE sender_id END
			ORDER BY created_at DESC, id DESC
		) AS rn,
		SUM(CASE WHEN recipient_id = @user AND is_read = @unread THEN 1 ELSE 0 END) OVER (
			PARTITION BY CASE WHEN sender_id = @user THEN recipient_id ELSE sender_id END
		) AS unread_count
	FROM messages
	WHERE sender_id = @user OR recipient_id = @user
) ranked ON ranked.id = messages.id
WHERE ranked.rn = 1
ORDER BY messages.created_at DESC, ranked.partner_id ASC`

type conversationRow struct {
	ID            string
	SenderID      string
	RecipientID   string
	Content       string
	AttachmentURL *string
	IsRead        bool
	CreatedAt     time.Time
	PartnerID     string
	UnreadCount   int64
}

// GetConversations is a single query: messages are ranked per partner by recency, the
// newest one is kept and the partner's unread tally rides along as a window sum.
func (r *messageRepository) GetConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	var rows []conversationRow
	err := r.db.WithContext(ctx).
		Raw(conversationsQuery, map[string]interface{}{"user": userID, "unread": false}).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.ConversationSummary{
			PartnerID: row.PartnerID,
			LastMessage: models.Message{
				ID:            row.ID,
				SenderID:      row.SenderID,
				RecipientID:   row.RecipientID,
				Content:       row.Content,
				AttachmentURL: row.AttachmentURL,
				Read:          row.IsRead,
				CreatedAt:     row.CreatedAt,
			},
			UnreadCount: row.UnreadCount,
		})
	}
	return summaries, nil
}

// DeleteUserMessages removes every message sent or received by userID
func (r *messageRepository) DeleteUserMessages(ctx context.Context, userID string) error {
	return translate(r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Delete(&models.Message{}).Error)
}
