// Package nutrition folds nutrition-bearing records into macro totals.
//
// Every function is total: malformed numbers never produce errors. A NaN
// macro value counts as zero and a zero or NaN quantity counts as one,
// which is how values were treated when the stored data was written.
// Results are not rounded; use Round1 for display.
package nutrition

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"mahlzeit/models"
)

type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Carbs:    t.Carbs + o.Carbs,
		Fat:      t.Fat + o.Fat,
	}
}

func (t Totals) Scale(f float64) Totals {
	return Totals{
		Calories: t.Calories * f,
		Protein:  t.Protein * f,
		Carbs:    t.Carbs * f,
		Fat:      t.Fat * f,
	}
}

// Rounded returns t with every field rounded to one decimal.
func (t Totals) Rounded() Totals {
	return Totals{
		Calories: Round1(t.Calories),
		Protein:  Round1(t.Protein),
		Carbs:    Round1(t.Carbs),
		Fat:      Round1(t.Fat),
	}
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// num maps NaN to zero.
func num(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// multiplier maps zero and NaN to one. Negative values pass through.
func multiplier(q float64) float64 {
	if q == 0 || math.IsNaN(q) {
		return 1
	}
	return q
}

// SumDishes returns Σ field × quantity over the planned dishes.
func SumDishes(dishes []models.PlannedDish) Totals {
	var t Totals
	for _, d := range dishes {
		q := multiplier(d.Quantity)
		t.Calories += num(d.Calories) * q
		t.Protein += num(d.Protein) * q
		t.Carbs += num(d.Carbs) * q
		t.Fat += num(d.Fat) * q
	}
	return t
}

var leadingNumber = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)`)

// UnitBase extracts the leading number of a nutrition unit ("100g" -> 100,
// "1 Stück" -> 1). Units without a usable number count as 100.
func UnitBase(unit models.NutritionUnit) float64 {
	m := leadingNumber.FindString(string(unit))
	if m == "" {
		return 100
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil || v == 0 || math.IsNaN(v) {
		return 100
	}
	return v
}

// IngredientTotals is the contribution of a single ingredient.
func IngredientTotals(in models.DishIngredient) Totals {
	factor := num(in.Quantity) / UnitBase(in.NutritionUnit)
	return Totals{
		Calories: num(in.Calories) * factor,
		Protein:  num(in.Protein) * factor,
		Carbs:    num(in.Carbs) * factor,
		Fat:      num(in.Fat) * factor,
	}
}

func SumIngredients(ingredients []models.DishIngredient) Totals {
	var t Totals
	for _, in := range ingredients {
		t = t.Add(IngredientTotals(in))
	}
	return t
}

func SumTemporaryMeals(meals []models.TemporaryMeal) Totals {
	var t Totals
	for _, m := range meals {
		t.Calories += num(m.Calories)
		t.Protein += num(m.Protein)
		t.Carbs += num(m.Carbs)
		t.Fat += num(m.Fat)
	}
	return t
}

func BurnedCalories(activities []models.SportActivity) float64 {
	var sum float64
	for _, a := range activities {
		sum += num(a.Calories)
	}
	return sum
}

// DayTotals sums all four meal slots and the temporary meals of a plan.
func DayTotals(p *models.MealPlan) Totals {
	if p == nil {
		return Totals{}
	}
	return SumDishes(p.AllDishes()).Add(SumTemporaryMeals(p.TemporaryMeals))
}
