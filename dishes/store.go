package dishes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mahlzeit/models"
)

var ErrNotFound = errors.New("dish not found")

type ListQuery struct {
	Search   string
	Category models.DishCategory
	Sort     string
	Offset   int
	Limit    int
}

// CategoryCount is one row of the per-category overview.
type CategoryCount struct {
	Category models.DishCategory `bson:"_id"   json:"category"`
	Count    int                 `bson:"count" json:"count"`
}

type Store interface {
	List(ctx context.Context, userID string, q ListQuery) ([]models.Dish, error)
	Get(ctx context.Context, userID, id string) (*models.Dish, error)
	Insert(ctx context.Context, d *models.Dish) error
	Update(ctx context.Context, d *models.Dish) error
	SetRating(ctx context.Context, userID, id string, rating int) error
	Delete(ctx context.Context, userID, id string) error
	Categories(ctx context.Context, userID string) ([]CategoryCount, error)
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func sortFor(key string) bson.D {
	switch key {
	case "calories":
		return bson.D{{Key: "calories", Value: -1}, {Key: "name", Value: 1}}
	case "protein":
		return bson.D{{Key: "protein", Value: -1}, {Key: "name", Value: 1}}
	case "rating":
		return bson.D{{Key: "rating", Value: -1}, {Key: "name", Value: 1}}
	case "newest":
		return bson.D{{Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "name", Value: 1}}
	}
}

func (s *MongoStore) List(ctx context.Context, userID string, q ListQuery) ([]models.Dish, error) {
	filter := bson.M{"userId": userID}
	if search := strings.TrimSpace(q.Search); search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	opts := options.Find().
		SetSort(sortFor(q.Sort)).
		SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find dishes: %w", err)
	}
	defer cursor.Close(ctx)

	dishes := []models.Dish{}
	if err := cursor.All(ctx, &dishes); err != nil {
		return nil, fmt.Errorf("decode dishes: %w", err)
	}
	return dishes, nil
}

func ownerFilter(userID, id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return bson.M{"_id": oid, "userId": userID}, nil
}

func (s *MongoStore) Get(ctx context.Context, userID, id string) (*models.Dish, error) {
	filter, err := ownerFilter(userID, id)
	if err != nil {
		return nil, err
	}
	var d models.Dish
	err = s.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find dish: %w", err)
	}
	return &d, nil
}

func (s *MongoStore) Insert(ctx context.Context, d *models.Dish) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("insert dish: %w", err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, d *models.Dish) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": d.ID, "userId": d.UserID}, d)
	if err != nil {
		return fmt.Errorf("replace dish: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetRating(ctx context.Context, userID, id string, rating int) error {
	filter, err := ownerFilter(userID, id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"rating": rating}}
	if rating == 0 {
		update = bson.M{"$unset": bson.M{"rating": ""}}
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("rate dish: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, userID, id string) error {
	filter, err := ownerFilter(userID, id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete dish: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Categories(ctx context.Context, userID string) ([]CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$ifNull": bson.A{"$category", ""}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate categories: %w", err)
	}
	defer cursor.Close(ctx)

	out := []CategoryCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}
