package dishes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"mahlzeit/models"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mahlzeit.dishes", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "userId", Value: "u1"},
			{Key: "name", Value: "Linsensuppe"},
			{Key: "calories", Value: 320.0},
			{Key: "category", Value: "mainDish"},
		}))

		d, err := NewMongoStore(mt.Coll).Get(context.Background(), "u1", id.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Linsensuppe", d.Name)
		assert.Equal(t, models.CategoryMainDish, d.Category)
		assert.Equal(t, 320.0, d.Calories)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mahlzeit.dishes", mtest.FirstBatch))

		_, err := NewMongoStore(mt.Coll).Get(context.Background(), "u1", primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("get malformed id", func(mt *mtest.T) {
		_, err := NewMongoStore(mt.Coll).Get(context.Background(), "u1", "not-an-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "mahlzeit.dishes", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "u1"}, {Key: "name", Value: "Apfel"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "u1"}, {Key: "name", Value: "Birne"}},
		))

		dishes, err := NewMongoStore(mt.Coll).List(context.Background(), "u1", ListQuery{Search: "(", Limit: 10})
		require.NoError(t, err)
		require.Len(t, dishes, 2)
		assert.Equal(t, "Birne", dishes[1].Name)
	})

	mt.Run("insert assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		d := &models.Dish{UserID: "u1", Name: "Quark"}
		require.NoError(t, NewMongoStore(mt.Coll).Insert(context.Background(), d))
		assert.False(t, d.ID.IsZero())
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := NewMongoStore(mt.Coll).Delete(context.Background(), "u1", primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("rate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := NewMongoStore(mt.Coll).SetRating(context.Background(), "u1", primitive.NewObjectID().Hex(), 4)
		assert.NoError(t, err)
	})
}

func TestSortFor(t *testing.T) {
	assert.Equal(t, "name", sortFor("")[0].Key)
	assert.Equal(t, "calories", sortFor("calories")[0].Key)
	assert.Equal(t, "createdAt", sortFor("newest")[0].Key)
}
