package mealplans

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mahlzeit/models"
)

var ErrNotFound = errors.New("meal plan not found")

type Store interface {
	Get(ctx context.Context, userID, date string) (*models.MealPlan, error)
	// Range returns the stored plans with from <= date <= to, ordered by date.
	Range(ctx context.Context, userID, from, to string) ([]models.MealPlan, error)
	Save(ctx context.Context, p *models.MealPlan) error
	Delete(ctx context.Context, userID, date string) error
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Get(ctx context.Context, userID, date string) (*models.MealPlan, error) {
	var p models.MealPlan
	err := s.coll.FindOne(ctx, bson.M{"userId": userID, "date": date}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find meal plan: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (s *MongoStore) Range(ctx context.Context, userID, from, to string) ([]models.MealPlan, error) {
	filter := bson.M{"userId": userID, "date": bson.M{"$gte": from, "$lte": to}}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find meal plans: %w", err)
	}
	defer cursor.Close(ctx)

	plans := []models.MealPlan{}
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("decode meal plans: %w", err)
	}
	for i := range plans {
		plans[i].Normalize()
	}
	return plans, nil
}

// Save replaces the plan of (userId, date); concurrent writers race and the
// last one wins. The _id is left out so an upsert never rewrites it.
func (s *MongoStore) Save(ctx context.Context, p *models.MealPlan) error {
	filter := bson.M{"userId": p.UserID, "date": p.Date}
	doc := *p
	doc.ID = primitive.NilObjectID
	if _, err := s.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("save meal plan: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, userID, date string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID, "date": date})
	if err != nil {
		return fmt.Errorf("delete meal plan: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
