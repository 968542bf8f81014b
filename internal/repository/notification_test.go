package repository

import (
	"context"
	"testing"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoNotificationStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert assigns id and timestamp", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		n := &models.Notification{RecipientID: 1, ActorID: 2, Type: models.NotificationFollow}
		require.NoError(t, store.Insert(ctx, n))
		assert.False(t, n.ID.IsZero())
		assert.False(t, n.CreatedAt.IsZero())
	})

	mt.Run("list decodes documents", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		id := primitive.NewObjectID()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: id},
				{Key: "recipient_id", Value: int64(1)},
				{Key: "actor_id", Value: int64(2)},
				{Key: "type", Value: "post_like"},
				{Key: "data", Value: bson.D{{Key: "post", Value: "Speedrun tips"}}},
				{Key: "read", Value: false},
				{Key: "created_at", Value: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
			}),
		)

		items, total, err := store.List(ctx, 1, true, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, id, items[0].ID)
		assert.Equal(t, uint(2), items[0].ActorID)
		assert.Equal(t, models.NotificationPostLike, items[0].Type)
		assert.Equal(t, "Speedrun tips", items[0].Data["post"])
	})

	mt.Run("mark read reports modified count", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 2},
		))

		n, err := store.MarkRead(ctx, 1, []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	mt.Run("mark read without ids is a no-op", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.Coll)
		n, err := store.MarkRead(ctx, 1, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	mt.Run("delete of a foreign notification is not found", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := store.Delete(ctx, 1, primitive.NewObjectID())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}
