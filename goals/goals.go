// Package goals stores global and per-week nutrition goals.
package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mahlzeit/models"
)

var (
	ErrNotFound = errors.New("goals not found")
	ErrInvalid  = errors.New("Ziele dürfen nicht negativ sein")
)

// WeekStart returns the Monday of the week containing day.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	y, m, d := day.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
}

// WeekStartString is WeekStart formatted as YYYY-MM-DD.
func WeekStartString(day time.Time) string {
	return WeekStart(day).Format(models.DateLayout)
}

type Store interface {
	Global(ctx context.Context, userID string) (*models.NutritionGoals, error)
	SaveGlobal(ctx context.Context, g *models.NutritionGoals) error
	Weekly(ctx context.Context, userID, weekStart string) (*models.WeeklyNutritionGoals, error)
	SaveWeekly(ctx context.Context, g *models.WeeklyNutritionGoals) error
	DeleteWeekly(ctx context.Context, userID, weekStart string) error
}

type MongoStore struct {
	global *mongo.Collection
	weekly *mongo.Collection
}

func NewMongoStore(global, weekly *mongo.Collection) *MongoStore {
	return &MongoStore{global: global, weekly: weekly}
}

func (s *MongoStore) Global(ctx context.Context, userID string) (*models.NutritionGoals, error) {
	var g models.NutritionGoals
	err := s.global.FindOne(ctx, bson.M{"userId": userID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find goals: %w", err)
	}
	return &g, nil
}

func (s *MongoStore) SaveGlobal(ctx context.Context, g *models.NutritionGoals) error {
	_, err := s.global.ReplaceOne(ctx, bson.M{"userId": g.UserID}, g, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save goals: %w", err)
	}
	return nil
}

func (s *MongoStore) Weekly(ctx context.Context, userID, weekStart string) (*models.WeeklyNutritionGoals, error) {
	var g models.WeeklyNutritionGoals
	err := s.weekly.FindOne(ctx, bson.M{"userId": userID, "weekStart": weekStart}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find weekly goals: %w", err)
	}
	return &g, nil
}

func (s *MongoStore) SaveWeekly(ctx context.Context, g *models.WeeklyNutritionGoals) error {
	filter := bson.M{"userId": g.UserID, "weekStart": g.WeekStart}
	if _, err := s.weekly.ReplaceOne(ctx, filter, g, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("save weekly goals: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteWeekly(ctx context.Context, userID, weekStart string) error {
	res, err := s.weekly.DeleteOne(ctx, bson.M{"userId": userID, "weekStart": weekStart})
	if err != nil {
		return fmt.Errorf("delete weekly goals: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Effective are the goals that apply on a given day.
type Effective struct {
	models.Goals
	Source    string `json:"source"` // "weekly", "global" or "none"
	WeekStart string `json:"weekStart"`
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Effective resolves weekly goals first, then global goals, then zero goals.
func (s *Service) Effective(ctx context.Context, userID string, day time.Time) (Effective, error) {
	ws := WeekStartString(day)
	weekly, err := s.store.Weekly(ctx, userID, ws)
	switch {
	case err == nil:
		return Effective{Goals: weekly.Goals, Source: "weekly", WeekStart: ws}, nil
	case !errors.Is(err, ErrNotFound):
		return Effective{}, err
	}

	global, err := s.store.Global(ctx, userID)
	switch {
	case err == nil:
		return Effective{Goals: global.Goals, Source: "global", WeekStart: ws}, nil
	case errors.Is(err, ErrNotFound):
		return Effective{Source: "none", WeekStart: ws}, nil
	default:
		return Effective{}, err
	}
}

func validate(g models.Goals) error {
	if g.BaseCalories < 0 || g.TargetCalories < 0 || g.Protein < 0 || g.Carbs < 0 || g.Fat < 0 {
		return ErrInvalid
	}
	return nil
}

func (s *Service) Global(ctx context.Context, userID string) (*models.NutritionGoals, error) {
	g, err := s.store.Global(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &models.NutritionGoals{UserID: userID}, nil
	}
	return g, err
}

func (s *Service) SaveGlobal(ctx context.Context, userID string, goals models.Goals) (*models.NutritionGoals, error) {
	if err := validate(goals); err != nil {
		return nil, err
	}
	g := &models.NutritionGoals{UserID: userID, Goals: goals, UpdatedAt: s.now().UTC()}
	return g, s.store.SaveGlobal(ctx, g)
}

func (s *Service) Weekly(ctx context.Context, userID string, day time.Time) (*models.WeeklyNutritionGoals, error) {
	return s.store.Weekly(ctx, userID, WeekStartString(day))
}

func (s *Service) SaveWeekly(ctx context.Context, userID string, day time.Time, goals models.Goals) (*models.WeeklyNutritionGoals, error) {
	if err := validate(goals); err != nil {
		return nil, err
	}
	g := &models.WeeklyNutritionGoals{
		UserID:    userID,
		WeekStart: WeekStartString(day),
		Goals:     goals,
		UpdatedAt: s.now().UTC(),
	}
	return g, s.store.SaveWeekly(ctx, g)
}

func (s *Service) DeleteWeekly(ctx context.Context, userID string, day time.Time) error {
	return s.store.DeleteWeekly(ctx, userID, WeekStartString(day))
}
