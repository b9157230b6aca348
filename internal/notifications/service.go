// Package notifications records activity notifications and pushes them to the
// recipient's sockets.
package notifications

import (
	"context"
	"time"

	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/metrics"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/telemetry"
	"github.com/hirewire/backend/internal/websocket"
)

// Notifier is the subset used by other services that raise notifications.
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput) (*models.Notification, error)
}

// NotifyInput describes a notification. SenderID is empty for system notifications.
type NotifyInput struct {
	RecipientID string
	SenderID    string
	Type        models.NotificationType
	RelatedID   string
	Message     string
}

// Service stores notifications and emits them in real time.
type Service struct {
	repo    repository.NotificationRepository
	emitter websocket.Emitter
	events  *telemetry.BusinessEvents
}

func NewService(repo repository.NotificationRepository, emitter websocket.Emitter) *Service {
	return &Service{
		repo:    repo,
		emitter: emitter,
		events:  telemetry.NewBusinessEvents(),
	}
}

// Notify stores a notification and pushes it to the recipient. Users are never
// notified about their own actions: it returns nil, nil when sender and recipient match.
func (s *Service) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	if in.RecipientID == "" || in.SenderID == in.RecipientID {
		return nil, nil
	}

	ctx, span := s.events.TraceNotify(ctx, string(in.Type), in.RecipientID)
	defer span.End()

	n := &models.Notification{
		RecipientID: in.RecipientID,
		Type:        in.Type,
		Message:     in.Message,
		CreatedAt:   time.Now().UTC(),
	}
	if in.SenderID != "" {
		sender := in.SenderID
		n.SenderID = &sender
	}
	if in.RelatedID != "" {
		related := in.RelatedID
		n.RelatedID = &related
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		telemetry.RecordError(span, err)
		logger.ErrorWithFields("Failed to store notification", err,
			logger.WithRecipientID(in.RecipientID),
			logger.WithEvent(string(in.Type)))
		return nil, err
	}
	metrics.Get().NotificationsCreatedTotal.WithLabelValues(string(in.Type)).Inc()

	s.emitter.EmitToUser(n.RecipientID, websocket.EventNotification, n)
	telemetry.RecordDelivery(span, websocket.EventNotification, n.RecipientID)
	telemetry.RecordSuccess(span, 1)
	return n, nil
}

// List returns recipientID's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, recipientID, unreadOnly, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

// MarkRead marks one of recipientID's notifications read.
// A notification owned by someone else reports repository.ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	return s.repo.MarkRead(ctx, notificationID, recipientID)
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *Service) Delete(ctx context.Context, notificationID, recipientID string) error {
	return s.repo.DeleteNotification(ctx, notificationID, recipientID)
}

// DeleteAllForUser removes userID's notifications. Used on account deletion.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) error {
	return s.repo.DeleteUserNotifications(ctx, userID)
}

var _ Notifier = (*Service)(nil)
