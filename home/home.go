package home

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/goals"
	"mahlzeit/mealplans"
	"mahlzeit/models"
	"mahlzeit/utils"
)

type Planner interface {
	Get(ctx context.Context, userID, date string) (*mealplans.DayView, error)
	Week(ctx context.Context, userID, date string) (*mealplans.WeekView, error)
}

type GoalSource interface {
	Effective(ctx context.Context, userID string, day time.Time) (goals.Effective, error)
}

var errUnknownRoute = errors.New("unknown home route")

type Handlers struct {
	plans Planner
	goals GoalSource
	now   func() time.Time
}

func NewHandlers(plans Planner, g GoalSource) *Handlers {
	return &Handlers{plans: plans, goals: g, now: time.Now}
}

// GetHomeContent serves the dashboard tiles under /home/:apiRoute.
func (h *Handlers) GetHomeContent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	apiRoute := strings.ToLower(ps.ByName("apiRoute"))
	userID := utils.GetUserIDFromRequest(r)
	today := h.now().UTC()
	date := today.Format(models.DateLayout)
	ctx := r.Context()

	var (
		data interface{}
		err  error
	)
	switch apiRoute {
	case "today":
		data, err = h.plans.Get(ctx, userID, date)
	case "week":
		data, err = h.plans.Week(ctx, userID, date)
	case "goals":
		data, err = h.goals.Effective(ctx, userID, today)
	default:
		err = errUnknownRoute
	}

	if errors.Is(err, errUnknownRoute) {
		utils.RespondWithError(w, http.StatusNotFound, "Unbekannte Ansicht")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("route", apiRoute).Msg("home content")
		utils.RespondWithError(w, http.StatusInternalServerError, "Daten konnten nicht geladen werden")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, data)
}
