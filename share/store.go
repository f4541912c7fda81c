package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mahlzeit/models"
)

type Store interface {
	Insert(ctx context.Context, s *models.SharedDish) error
	FindActive(ctx context.Context, code string, now time.Time) (*models.SharedDish, error)
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// Insert refuses a code that is still active. Expired codes may be reused.
func (m *MongoStore) Insert(ctx context.Context, s *models.SharedDish) error {
	n, err := m.coll.CountDocuments(ctx, bson.M{"code": s.Code, "expiresAt": bson.M{"$gt": s.CreatedAt}})
	if err != nil {
		return fmt.Errorf("check share code: %w", err)
	}
	if n > 0 {
		return ErrCodeTaken
	}
	if _, err := m.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

func (m *MongoStore) FindActive(ctx context.Context, code string, now time.Time) (*models.SharedDish, error) {
	var s models.SharedDish
	err := m.coll.FindOne(ctx, bson.M{"code": code, "expiresAt": bson.M{"$gt": now}}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find share: %w", err)
	}
	return &s, nil
}
