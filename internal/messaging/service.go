// Package messaging implements direct messages between users: persistence through a
// repository.MessageRepository and real-time push through a websocket.Emitter.
package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/metrics"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/telemetry"
	"github.com/hirewire/backend/internal/websocket"
)

// MaxContentLength is the longest message body accepted, in characters.
const MaxContentLength = 5000

var (
	ErrEmptyMessage      = errors.New("message content or attachment is required")
	ErrContentTooLong    = errors.New("message content is too long")
	ErrSelfMessage       = errors.New("cannot send a message to yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrNotSender         = errors.New("only the sender can delete a message")
)

// NewMessagePayload is pushed with new_message to both participants.
type NewMessagePayload struct {
	Message *models.Message   `json:"message"`
	Sender  models.PublicUser `json:"sender"`
}

// MessagesReadPayload is pushed with messages_read to the author of the messages.
type MessagesReadPayload struct {
	ReaderID string    `json:"reader_id"`
	Count    int64     `json:"count"`
	ReadAt   time.Time `json:"read_at"`
}

// MessageDeletedPayload is pushed with message_deleted to both participants.
type MessageDeletedPayload struct {
	MessageID   string `json:"message_id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
}

// Conversation is an inbox row with the partner's profile card attached.
// Partner is nil when the partner account no longer exists.
type Conversation struct {
	Partner     *models.PublicUser `json:"partner"`
	PartnerID   string             `json:"partner_id"`
	LastMessage models.Message     `json:"last_message"`
	UnreadCount int64              `json:"unread_count"`
}

// SendInput describes a message to send.
type SendInput struct {
	SenderID      string
	RecipientID   string
	Content       string
	AttachmentURL *string
}

// Service coordinates message storage and real-time delivery.
type Service struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	emitter  websocket.Emitter
	events   *telemetry.BusinessEvents
}

// NewService creates the messaging service.
func NewService(messages repository.MessageRepository, users repository.UserRepository, emitter websocket.Emitter) *Service {
	return &Service{
		messages: messages,
		users:    users,
		emitter:  emitter,
		events:   telemetry.NewBusinessEvents(),
	}
}

// Send stores a message and pushes it to the recipient's room and to the sender's
// other sockets. The push is best-effort; the stored message is returned either way.
func (s *Service) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	ctx, span := s.events.TraceSendMessage(ctx, in.SenderID, in.RecipientID, in.AttachmentURL != nil)
	defer span.End()

	content := strings.TrimSpace(in.Content)
	if content == "" && (in.AttachmentURL == nil || *in.AttachmentURL == "") {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	if in.RecipientID == in.SenderID {
		return nil, ErrSelfMessage
	}

	sender, err := s.users.GetUser(ctx, in.SenderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, in.RecipientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	msg := &models.Message{
		SenderID:      in.SenderID,
		RecipientID:   in.RecipientID,
		Content:       content,
		AttachmentURL: in.AttachmentURL,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	metrics.Get().MessagesSentTotal.Inc()

	payload := NewMessagePayload{Message: msg, Sender: sender.Public()}
	s.emitter.EmitToUser(msg.RecipientID, websocket.EventNewMessage, payload)
	s.emitter.EmitToUser(msg.SenderID, websocket.EventNewMessage, payload)
	telemetry.RecordDelivery(span, websocket.EventNewMessage, msg.RecipientID)
	telemetry.RecordSuccess(span, 1)

	logger.DebugWithFields("Message sent",
		logger.WithMessageID(msg.ID),
		logger.WithUserID(msg.SenderID),
		logger.WithRecipientID(msg.RecipientID))
	return msg, nil
}

// Thread returns the messages between userID and partnerID, oldest first.
func (s *Service) Thread(ctx context.Context, userID, partnerID string, limit, offset int) ([]models.Message, error) {
	ctx, span := s.events.TraceThread(ctx, "get", userID, partnerID)
	defer span.End()

	msgs, err := s.messages.GetThread(ctx, userID, partnerID, limit, offset)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span, len(msgs))
	return msgs, nil
}

// MarkThreadRead marks every message partnerID sent to readerID as read and tells
// partnerID how many were read. Messages readerID sent are untouched.
func (s *Service) MarkThreadRead(ctx context.Context, readerID, partnerID string) (int64, error) {
	ctx, span := s.events.TraceThread(ctx, "mark_read", readerID, partnerID)
	defer span.End()

	count, err := s.messages.MarkThreadRead(ctx, readerID, partnerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	if count > 0 {
		s.emitter.EmitToUser(partnerID, websocket.EventMessagesRead, MessagesReadPayload{
			ReaderID: readerID,
			Count:    count,
			ReadAt:   time.Now().UTC(),
		})
		telemetry.RecordDelivery(span, websocket.EventMessagesRead, partnerID)
	}
	telemetry.RecordSuccess(span, int(count))
	return count, nil
}

// UnreadCount returns how many messages addressed to userID are unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx, span := s.events.TraceInbox(ctx, "unread_count", userID)
	defer span.End()

	count, err := s.messages.CountUnread(ctx, userID)
	telemetry.RecordError(span, err)
	return count, err
}

// Conversations returns userID's inbox, newest conversation first.
func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	ctx, span := s.events.TraceInbox(ctx, "conversations", userID)
	defer span.End()

	summaries, err := s.messages.GetConversations(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ids := make([]string, len(summaries))
	for i, sum := range summaries {
		ids[i] = sum.PartnerID
	}
	partners := make(map[string]models.PublicUser, len(ids))
	if len(ids) > 0 {
		users, err := s.users.GetUsers(ctx, ids)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		for i := range users {
			partners[users[i].ID] = users[i].Public()
		}
	}

	conversations := make([]Conversation, 0, len(summaries))
	for _, sum := range summaries {
		c := Conversation{
			PartnerID:   sum.PartnerID,
			LastMessage: sum.LastMessage,
			UnreadCount: sum.UnreadCount,
		}
		if p, ok := partners[sum.PartnerID]; ok {
			c.Partner = &p
		}
		conversations = append(conversations, c)
	}
	telemetry.RecordSuccess(span, len(conversations))
	return conversations, nil
}

// Delete removes a message. Only its sender may delete it.
func (s *Service) Delete(ctx context.Context, userID, messageID string) error {
	ctx, span := s.events.TraceThread(ctx, "delete", userID, "")
	defer span.End()

	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if msg.SenderID != userID {
		return ErrNotSender
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	payload := MessageDeletedPayload{MessageID: msg.ID, SenderID: msg.SenderID, RecipientID: msg.RecipientID}
	s.emitter.EmitToUser(msg.RecipientID, websocket.EventMessageDeleted, payload)
	s.emitter.EmitToUser(msg.SenderID, websocket.EventMessageDeleted, payload)
	telemetry.RecordSuccess(span, 1)
	return nil
}

// DeleteAllForUser removes every message userID sent or received. Used on account deletion.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) error {
	return s.messages.DeleteUserMessages(ctx, userID)
}
