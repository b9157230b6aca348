package mongostore

import (
	"context"
	"time"

	"github.com/hirewire/backend/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessageStore implements repository.MessageRepository on the messages collection
type MessageStore struct {
	coll *mongo.Collection
}

func (s *MessageStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = models.NewOrderedID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.coll.InsertOne(ctx, msg)
	return translate(err)
}

func (s *MessageStore) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	var msg models.Message
	if err := s.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg); err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (s *MessageStore) DeleteMessage(ctx context.Context, messageID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments)
	}
	return nil
}

func threadFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "recipient_id": b},
		bson.M{"sender_id": b, "recipient_id": a},
	}}
}

func (s *MessageStore) GetThread(ctx context.Context, a, b string, limit, offset int) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	cur, err := s.coll.Find(ctx, threadFilter(a, b), opts)
	if err != nil {
		return nil, translate(err)
	}
	msgs := []models.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, translate(err)
	}
	return msgs, nil
}

func (s *MessageStore) MarkThreadRead(ctx context.Context, readerID, senderID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"sender_id": senderID, "recipient_id": readerID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

func (s *MessageStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"recipient_id": userID, "read": false})
	return n, translate(err)
}

// conversationPipeline groups every message involving userID by the other party:
// match, newest first, group keeping the first (newest) message and summing unread
// incoming messages, newest conversation first, then shape the output.
func conversationPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"recipient_id": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}},
				"$recipient_id",
				"$sender_id",
			}}},
			{Key: "last_message", Value: bson.M{"$first": "$$ROOT"}},
			{Key: "unread_count", Value: bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$recipient_id", userID}},
					bson.M{"$eq": bson.A{"$read", false}},
				}},
				1,
				0,
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message.created_at", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "partner_id", Value: "$_id"},
			{Key: "last_message", Value: 1},
			{Key: "unread_count", Value: 1},
		}}},
	}
}

func (s *MessageStore) GetConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	cur, err := s.coll.Aggregate(ctx, conversationPipeline(userID))
	if err != nil {
		return nil, translate(err)
	}
	out := []models.ConversationSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *MessageStore) DeleteUserMessages(ctx context.Context, userID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"recipient_id": userID},
	}})
	return translate(err)
}
