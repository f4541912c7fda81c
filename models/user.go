package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email"         json:"email"`
	PasswordHash string             `bson:"passwordHash"  json:"-"`
	DisplayName  string             `bson:"displayName"   json:"displayName"`
	CreatedAt    time.Time          `bson:"createdAt"     json:"createdAt"`
}

// Goals holds target macro values. BaseCalories is the daily energy need
// without sport, TargetCalories the intake the user aims for.
type Goals struct {
	BaseCalories   float64 `bson:"baseCalories"   json:"baseCalories"`
	TargetCalories float64 `bson:"targetCalories" json:"targetCalories"`
	Protein        float64 `bson:"protein"        json:"protein"`
	Carbs          float64 `bson:"carbs"          json:"carbs"`
	Fat            float64 `bson:"fat"            json:"fat"`
}

type NutritionGoals struct {
	UserID    string `bson:"userId"    json:"userId"`
	Goals     `bson:",inline"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// WeeklyNutritionGoals override NutritionGoals for the week starting on
// WeekStart (a Monday, YYYY-MM-DD).
type WeeklyNutritionGoals struct {
	UserID    string `bson:"userId"    json:"userId"`
	WeekStart string `bson:"weekStart" json:"weekStart"`
	Goals     `bson:",inline"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type FeatureToggles struct {
	ShowSport          bool `bson:"showSport"          json:"showSport"`
	ShowTemporaryMeals bool `bson:"showTemporaryMeals" json:"showTemporaryMeals"`
	ShowStomachPain    bool `bson:"showStomachPain"    json:"showStomachPain"`
	ShowNotes          bool `bson:"showNotes"          json:"showNotes"`
	ShowAISearch       bool `bson:"showAiSearch"       json:"showAiSearch"`
	ShowFoodSearch     bool `bson:"showFoodSearch"     json:"showFoodSearch"`
	SyncIntervals      bool `bson:"syncIntervals"      json:"syncIntervals"`
}

func DefaultFeatureToggles() FeatureToggles {
	return FeatureToggles{
		ShowSport:          true,
		ShowTemporaryMeals: true,
		ShowStomachPain:    true,
		ShowNotes:          true,
		ShowAISearch:       true,
		ShowFoodSearch:     true,
	}
}

type UserProfile struct {
	UserID             string         `bson:"userId"                       json:"userId"`
	Features           FeatureToggles `bson:"features"                     json:"features"`
	IntervalsAthleteID string         `bson:"intervalsAthleteId,omitempty" json:"intervalsAthleteId,omitempty"`
	IntervalsAPIKey    string         `bson:"intervalsApiKey,omitempty"    json:"-"`
	UpdatedAt          time.Time      `bson:"updatedAt"                    json:"updatedAt"`
}

func (p *UserProfile) IntervalsConfigured() bool {
	return p.IntervalsAthleteID != "" && p.IntervalsAPIKey != ""
}

// SharedDish is a time-limited export of a dish snapshot.
type SharedDish struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Code       string             `bson:"code"          json:"code"`
	Dish       Dish               `bson:"dish"          json:"dish"`
	SharedBy   string             `bson:"sharedBy"      json:"sharedBy"`
	SharedByID string             `bson:"sharedById"    json:"-"`
	CreatedAt  time.Time          `bson:"createdAt"     json:"createdAt"`
	ExpiresAt  time.Time          `bson:"expiresAt"     json:"expiresAt"`
}
