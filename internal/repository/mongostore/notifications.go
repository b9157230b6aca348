package mongostore

import (
	"context"
	"time"

	"github.com/hirewire/backend/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotificationStore implements repository.NotificationRepository on the notifications collection
type NotificationStore struct {
	coll *mongo.Collection
}

func (s *NotificationStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = models.NewOrderedID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.coll.InsertOne(ctx, n)
	return translate(err)
}

func (s *NotificationStore) GetNotification(ctx context.Context, notificationID string) (*models.Notification, error) {
	var n models.Notification
	if err := s.coll.FindOne(ctx, bson.M{"_id": notificationID}).Decode(&n); err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (s *NotificationStore) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	filter := bson.M{"recipient_id": recipientID}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "read": false})
	return n, translate(err)
}

func (s *NotificationStore) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": notificationID, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

func (s *NotificationStore) DeleteNotification(ctx context.Context, notificationID, recipientID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": notificationID, "recipient_id": recipientID})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments)
	}
	return nil
}

func (s *NotificationStore) DeleteUserNotifications(ctx context.Context, userID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"recipient_id": userID},
		bson.M{"sender_id": userID},
	}})
	return translate(err)
}
