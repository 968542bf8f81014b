package repository

import (
	"context"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationStore persists notifications. Every query is scoped to a recipient.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, recipientID uint, unreadOnly bool, page, limit int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, recipientID uint, ids []primitive.ObjectID) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uint) (int64, error)
	Delete(ctx context.Context, recipientID uint, id primitive.ObjectID) error
}

type mongoNotificationStore struct {
	coll *mongo.Collection
}

// NewMongoNotificationStore stores notifications in coll.
func NewMongoNotificationStore(coll *mongo.Collection) NotificationStore {
	return &mongoNotificationStore{coll: coll}
}

func (s *mongoNotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := s.coll.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = id
	}
	return nil
}

func (s *mongoNotificationStore) List(ctx context.Context, recipientID uint, unreadOnly bool, page, limit int) ([]models.Notification, int64, error) {
	page, limit = NormalizePage(page, limit)
	filter := bson.M{"recipient_id": recipientID}
	if unreadOnly {
		filter["read"] = false
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0, limit)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (s *mongoNotificationStore) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "read": false})
}

func (s *mongoNotificationStore) MarkRead(ctx context.Context, recipientID uint, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	filter := bson.M{"recipient_id": recipientID, "read": false, "_id": bson.M{"$in": ids}}
	return s.markRead(ctx, filter)
}

func (s *mongoNotificationStore) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	return s.markRead(ctx, bson.M{"recipient_id": recipientID, "read": false})
}

func (s *mongoNotificationStore) markRead(ctx context.Context, filter bson.M) (int64, error) {
	update := bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}}
	res, err := s.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *mongoNotificationStore) Delete(ctx context.Context, recipientID uint, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "recipient_id": recipientID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("notification")
	}
	return nil
}
