package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DishCategory string

const (
	CategoryBreakfast DishCategory = "breakfast"
	CategoryMainDish  DishCategory = "mainDish"
	CategorySnack     DishCategory = "snack"
)

func (c DishCategory) Valid() bool {
	switch c {
	case "", CategoryBreakfast, CategoryMainDish, CategorySnack:
		return true
	}
	return false
}

// NutritionUnit is the denominator of per-unit macro values.
type NutritionUnit string

const (
	Per100g  NutritionUnit = "100g"
	Per100ml NutritionUnit = "100ml"
	PerPiece NutritionUnit = "1 Stück"
)

func (u NutritionUnit) Valid() bool {
	return u == Per100g || u == Per100ml || u == PerPiece
}

// Dish sources
const (
	SourceManual      = "manual"
	SourceAI          = "ai"
	SourceIngredients = "ingredients"
	SourceShare       = "share"
)

// DishIngredient is a line item of an ingredient-based dish. Macro values
// are given per NutritionUnit.
type DishIngredient struct {
	Name          string        `bson:"name"              json:"name"`
	Barcode       string        `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Quantity      float64       `bson:"quantity"          json:"quantity"`
	Unit          string        `bson:"unit"              json:"unit"`
	NutritionUnit NutritionUnit `bson:"nutritionUnit"     json:"nutritionUnit"`
	Calories      float64       `bson:"calories"          json:"calories"`
	Protein       float64       `bson:"protein"           json:"protein"`
	Carbs         float64       `bson:"carbs"             json:"carbs"`
	Fat           float64       `bson:"fat"               json:"fat"`
}

type Dish struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"         json:"id"`
	UserID      string             `bson:"userId"                json:"userId"`
	Name        string             `bson:"name"                  json:"name"`
	Calories    float64            `bson:"calories"              json:"calories"`
	Protein     float64            `bson:"protein"               json:"protein"`
	Carbs       float64            `bson:"carbs"                 json:"carbs"`
	Fat         float64            `bson:"fat"                   json:"fat"`
	Category    DishCategory       `bson:"category,omitempty"    json:"category,omitempty"`
	Rating      int                `bson:"rating,omitempty"      json:"rating,omitempty"`
	Recipe      string             `bson:"recipe,omitempty"      json:"recipe,omitempty"`
	RecipeURL   string             `bson:"recipeUrl,omitempty"   json:"recipeUrl,omitempty"`
	OriginalID  string             `bson:"originalId,omitempty"  json:"originalId,omitempty"`
	Ingredients []DishIngredient   `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	Source      string             `bson:"source,omitempty"      json:"source,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"             json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"             json:"updatedAt"`
}

func (d *Dish) IngredientBased() bool {
	return len(d.Ingredients) > 0
}
