package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	DishesCollection       *mongo.Collection
	GoalsCollection        *mongo.Collection
	MealPlansCollection    *mongo.Collection
	ProfilesCollection     *mongo.Collection
	SharedDishesCollection *mongo.Collection
	UserCollection         *mongo.Collection
	WeeklyGoalsCollection  *mongo.Collection
)

// Connect opens the client, pings the deployment and assigns the collections.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Database("admin").RunCommand(pingCtx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	DishesCollection = db.Collection("dishes")
	GoalsCollection = db.Collection("goals")
	MealPlansCollection = db.Collection("mealplans")
	ProfilesCollection = db.Collection("profiles")
	SharedDishesCollection = db.Collection("shareddishes")
	UserCollection = db.Collection("users")
	WeeklyGoalsCollection = db.Collection("weeklygoals")

	return client, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes. Failures are
// logged, not returned: queries still work while an index is being built.
func EnsureIndexes(ctx context.Context) {
	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{UserCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{DishesCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "name", Value: 1}},
		}},
		{MealPlansCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{GoalsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{WeeklyGoalsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "weekStart", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{ProfilesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{SharedDishesCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "code", Value: 1}, {Key: "expiresAt", Value: 1}},
		}},
	}

	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateOne(ctx, s.model); err != nil {
			log.Warn().Err(err).Str("collection", s.coll.Name()).Msg("index creation failed")
		}
	}
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
