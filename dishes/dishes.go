// Package dishes manages a user's dish catalogue.
package dishes

import (
	"errors"
	"math"
	"strings"

	"mahlzeit/models"
	"mahlzeit/nutrition"
)

var ErrInvalid = errors.New("invalid dish")

// validationError carries a user-facing message and matches ErrInvalid.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrInvalid }

func invalid(msg string) error {
	return &validationError{msg: msg}
}

// Prepare validates d and fills derived fields. Ingredient-based dishes get
// their macro values recomputed from the ingredient list.
func Prepare(d *models.Dish) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return invalid("Name fehlt")
	}
	if !d.Category.Valid() {
		return invalid("Unbekannte Kategorie")
	}
	if err := ValidateRating(d.Category, d.Rating); err != nil {
		return err
	}

	for i := range d.Ingredients {
		in := &d.Ingredients[i]
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" {
			return invalid("Zutat ohne Name")
		}
		if in.NutritionUnit == "" {
			in.NutritionUnit = models.Per100g
		}
		if !in.NutritionUnit.Valid() {
			return invalid("Unbekannte Nährwerteinheit")
		}
		if negative(in.Quantity, in.Calories, in.Protein, in.Carbs, in.Fat) {
			return invalid("Negative Werte sind nicht erlaubt")
		}
	}

	if d.IngredientBased() {
		t := nutrition.SumIngredients(d.Ingredients).Rounded()
		d.Calories, d.Protein, d.Carbs, d.Fat = t.Calories, t.Protein, t.Carbs, t.Fat
		if d.Source == "" {
			d.Source = models.SourceIngredients
		}
	}
	if negative(d.Calories, d.Protein, d.Carbs, d.Fat) {
		return invalid("Negative Werte sind nicht erlaubt")
	}
	if d.Source == "" {
		d.Source = models.SourceManual
	}
	if !validSource(d.Source) {
		return invalid("Unbekannte Herkunft")
	}
	return nil
}

func validSource(s string) bool {
	switch s {
	case models.SourceManual, models.SourceAI, models.SourceIngredients, models.SourceShare:
		return true
	}
	return false
}

// ValidateRating allows 1..5 stars on main dishes; 0 means unrated.
func ValidateRating(c models.DishCategory, rating int) error {
	if rating == 0 {
		return nil
	}
	if rating < 1 || rating > 5 {
		return invalid("Bewertung muss zwischen 1 und 5 liegen")
	}
	if c != models.CategoryMainDish {
		return invalid("Nur Hauptgerichte können bewertet werden")
	}
	return nil
}

func negative(vs ...float64) bool {
	for _, v := range vs {
		if v < 0 || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// ToPlanned copies the catalogue dish into a meal slot entry.
func ToPlanned(d *models.Dish, placementID string, quantity float64) models.PlannedDish {
	if quantity <= 0 || math.IsNaN(quantity) {
		quantity = 1
	}
	return models.PlannedDish{
		ID:         placementID,
		OriginalID: d.ID.Hex(),
		Name:       d.Name,
		Calories:   d.Calories,
		Protein:    d.Protein,
		Carbs:      d.Carbs,
		Fat:        d.Fat,
		Category:   d.Category,
		Quantity:   quantity,
	}
}
