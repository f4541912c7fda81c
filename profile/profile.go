// Package profile stores per-user feature toggles and integration
// credentials.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mahlzeit/models"
)

var ErrNotFound = errors.New("profile not found")

type Store interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Save(ctx context.Context, p *models.UserProfile) error
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) Save(ctx context.Context, p *models.UserProfile) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"userId": p.UserID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Get returns the stored profile or the defaults for a new user.
func (s *Service) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &models.UserProfile{UserID: userID, Features: models.DefaultFeatureToggles()}, nil
	}
	return p, err
}

func (s *Service) SetFeatures(ctx context.Context, userID string, f models.FeatureToggles) (*models.UserProfile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Features = f
	if !p.IntervalsConfigured() {
		p.Features.SyncIntervals = false
	}
	p.UpdatedAt = s.now().UTC()
	return p, s.store.Save(ctx, p)
}

// SetIntervals stores the fitness integration credentials. Empty values
// clear them and switch sync off.
func (s *Service) SetIntervals(ctx context.Context, userID, athleteID, apiKey string) (*models.UserProfile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.IntervalsAthleteID = strings.TrimSpace(athleteID)
	p.IntervalsAPIKey = strings.TrimSpace(apiKey)
	p.Features.SyncIntervals = p.IntervalsConfigured()
	p.UpdatedAt = s.now().UTC()
	return p, s.store.Save(ctx, p)
}

// Credentials returns the athlete id and API key, or ok=false when the
// integration is not set up.
func (s *Service) Credentials(ctx context.Context, userID string) (athleteID, apiKey string, ok bool, err error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return "", "", false, err
	}
	return p.IntervalsAthleteID, p.IntervalsAPIKey, p.IntervalsConfigured(), nil
}
