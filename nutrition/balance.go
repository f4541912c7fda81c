package nutrition

import "mahlzeit/models"

// Balance compares a day's intake with the user's goals.
//
// Budget is BaseCalories plus burned sport calories. Deficit is Budget minus
// consumed calories, so a positive value means the user ate less than they
// used. TargetRemaining counts down from TargetCalories, also raised by sport.
type Balance struct {
	Consumed        Totals  `json:"consumed"`
	Burned          float64 `json:"burned"`
	Budget          float64 `json:"budget"`
	Deficit         float64 `json:"deficit"`
	TargetRemaining float64 `json:"targetRemaining"`
	Remaining       Totals  `json:"remaining"`
}

func ComputeBalance(consumed Totals, burned float64, goals models.Goals) Balance {
	budget := num(goals.BaseCalories) + num(burned)
	return Balance{
		Consumed:        consumed,
		Burned:          burned,
		Budget:          budget,
		Deficit:         budget - consumed.Calories,
		TargetRemaining: num(goals.TargetCalories) + num(burned) - consumed.Calories,
		Remaining: Totals{
			Calories: num(goals.TargetCalories) + num(burned) - consumed.Calories,
			Protein:  num(goals.Protein) - consumed.Protein,
			Carbs:    num(goals.Carbs) - consumed.Carbs,
			Fat:      num(goals.Fat) - consumed.Fat,
		},
	}
}

// DayBalance is ComputeBalance over a stored plan.
func DayBalance(p *models.MealPlan, goals models.Goals) Balance {
	var burned float64
	if p != nil {
		burned = BurnedCalories(p.SportActivities)
	}
	return ComputeBalance(DayTotals(p), burned, goals)
}
