// Package mongostore keeps messages and notifications in MongoDB. It satisfies the same
// repository interfaces as the GORM store and is selected with MESSAGE_STORE=mongo.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hirewire/backend/internal/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	messagesCollection      = "messages"
	notificationsCollection = "notifications"
)

// Store owns the client and hands out the two repositories
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and pings the deployment before returning
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the indexes the inbox queries rely on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		messagesCollection: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "recipient_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Messages() repository.MessageRepository {
	return &MessageStore{coll: s.db.Collection(messagesCollection)}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &NotificationStore{coll: s.db.Collection(notificationsCollection)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	}
	return err
}
