package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the storage and wire format of plan dates.
const DateLayout = "2006-01-02"

type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotDinner    MealSlot = "dinner"
	SlotSnacks    MealSlot = "snacks"
)

var MealSlots = []MealSlot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnacks}

func (s MealSlot) Valid() bool {
	switch s {
	case SlotBreakfast, SlotLunch, SlotDinner, SlotSnacks:
		return true
	}
	return false
}

// PlannedDish is a copy of a catalogue dish placed into a meal slot.
// ID is unique per placement, OriginalID points at the catalogue entry.
type PlannedDish struct {
	ID         string       `bson:"id"                   json:"id"`
	OriginalID string       `bson:"originalId,omitempty" json:"originalId,omitempty"`
	Name       string       `bson:"name"                 json:"name"`
	Calories   float64      `bson:"calories"             json:"calories"`
	Protein    float64      `bson:"protein"              json:"protein"`
	Carbs      float64      `bson:"carbs"                json:"carbs"`
	Fat        float64      `bson:"fat"                  json:"fat"`
	Category   DishCategory `bson:"category,omitempty"   json:"category,omitempty"`
	Quantity   float64      `bson:"quantity"             json:"quantity"`
}

type SportActivity struct {
	Calories    float64 `bson:"calories"              json:"calories"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
	ExternalID  string  `bson:"externalId,omitempty"  json:"externalId,omitempty"`
}

type TemporaryMeal struct {
	Description string  `bson:"description" json:"description"`
	Calories    float64 `bson:"calories"    json:"calories"`
	Protein     float64 `bson:"protein"     json:"protein"`
	Carbs       float64 `bson:"carbs"       json:"carbs"`
	Fat         float64 `bson:"fat"         json:"fat"`
}

type MealPlan struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"         json:"id"`
	UserID          string             `bson:"userId"                json:"userId"`
	Date            string             `bson:"date"                  json:"date"`
	Breakfast       []PlannedDish      `bson:"breakfast"             json:"breakfast"`
	Lunch           []PlannedDish      `bson:"lunch"                 json:"lunch"`
	Dinner          []PlannedDish      `bson:"dinner"                json:"dinner"`
	Snacks          []PlannedDish      `bson:"snacks"                json:"snacks"`
	SportActivities []SportActivity    `bson:"sportActivities"       json:"sportActivities"`
	TemporaryMeals  []TemporaryMeal    `bson:"temporaryMeals"        json:"temporaryMeals"`
	Note            string             `bson:"note,omitempty"        json:"note,omitempty"`
	StomachPain     *int               `bson:"stomachPain,omitempty" json:"stomachPain,omitempty"`
	UpdatedAt       time.Time          `bson:"updatedAt"             json:"updatedAt"`
}

// NewMealPlan returns an empty plan with non-nil lists.
func NewMealPlan(userID, date string) *MealPlan {
	p := &MealPlan{UserID: userID, Date: date}
	p.Normalize()
	return p
}

// Normalize replaces nil lists so the plan encodes as [] instead of null.
func (p *MealPlan) Normalize() {
	if p.Breakfast == nil {
		p.Breakfast = []PlannedDish{}
	}
	if p.Lunch == nil {
		p.Lunch = []PlannedDish{}
	}
	if p.Dinner == nil {
		p.Dinner = []PlannedDish{}
	}
	if p.Snacks == nil {
		p.Snacks = []PlannedDish{}
	}
	if p.SportActivities == nil {
		p.SportActivities = []SportActivity{}
	}
	if p.TemporaryMeals == nil {
		p.TemporaryMeals = []TemporaryMeal{}
	}
}

// Slot returns a pointer to the dish list of the given slot, or nil.
func (p *MealPlan) Slot(s MealSlot) *[]PlannedDish {
	switch s {
	case SlotBreakfast:
		return &p.Breakfast
	case SlotLunch:
		return &p.Lunch
	case SlotDinner:
		return &p.Dinner
	case SlotSnacks:
		return &p.Snacks
	}
	return nil
}

// AllDishes concatenates the four slots in breakfast, lunch, dinner, snacks order.
func (p *MealPlan) AllDishes() []PlannedDish {
	out := make([]PlannedDish, 0, len(p.Breakfast)+len(p.Lunch)+len(p.Dinner)+len(p.Snacks))
	out = append(out, p.Breakfast...)
	out = append(out, p.Lunch...)
	out = append(out, p.Dinner...)
	out = append(out, p.Snacks...)
	return out
}
