// Package suggestions proposes catalogue dishes the user has not eaten lately.
package suggestions

import (
	"context"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/dishes"
	"mahlzeit/models"
	"mahlzeit/utils"
)

const (
	recentDays   = 7
	defaultLimit = 5
	maxLimit     = 20
	// candidates scanned before the recently eaten ones are filtered out
	scanLimit = 100
)

type DishLister interface {
	List(ctx context.Context, userID string, q dishes.ListQuery) ([]models.Dish, error)
}

type PlanHistory interface {
	Recent(ctx context.Context, userID string, days int) ([]models.MealPlan, error)
}

type Handlers struct {
	dishes DishLister
	plans  PlanHistory
}

func NewHandlers(d DishLister, p PlanHistory) *Handlers {
	return &Handlers{dishes: d, plans: p}
}

// Suggest returns up to limit dishes ordered by rating, skipping any that
// were placed in the last week.
func Suggest(ctx context.Context, d DishLister, p PlanHistory, userID string, category models.DishCategory, limit int) ([]models.Dish, error) {
	candidates, err := d.List(ctx, userID, dishes.ListQuery{Category: category, Sort: "rating", Limit: scanLimit})
	if err != nil {
		return nil, err
	}
	plans, err := p.Recent(ctx, userID, recentDays)
	if err != nil {
		return nil, err
	}

	eaten := make(map[string]bool)
	for i := range plans {
		for _, pd := range plans[i].AllDishes() {
			if pd.OriginalID != "" {
				eaten[pd.OriginalID] = true
			}
		}
	}

	out := make([]models.Dish, 0, limit)
	for _, dish := range candidates {
		if eaten[dish.ID.Hex()] {
			continue
		}
		out = append(out, dish)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (h *Handlers) Dishes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	category := models.DishCategory(r.URL.Query().Get("category"))
	if !category.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Unbekannte Kategorie")
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	userID := utils.GetUserIDFromRequest(r)
	out, err := Suggest(r.Context(), h.dishes, h.plans, userID, category, limit)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("dish suggestions")
		utils.RespondWithError(w, http.StatusInternalServerError, "Vorschläge konnten nicht geladen werden")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}
