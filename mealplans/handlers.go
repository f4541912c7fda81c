package mealplans

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/models"
	"mahlzeit/utils"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidDate):
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültiges Datum")
	case errors.Is(err, ErrInvalid):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Kein Essensplan für diesen Tag")
	case errors.Is(err, ErrDishNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Gericht nicht gefunden")
	case errors.Is(err, ErrPlacementNotFound), errors.Is(err, ErrIndexOutOfRange):
		utils.RespondWithError(w, http.StatusNotFound, "Eintrag nicht gefunden")
	case errors.Is(err, ErrIntervalsNotLinked):
		utils.RespondWithError(w, http.StatusPreconditionFailed, "intervals.icu ist nicht verbunden")
	default:
		log.Error().Err(err).Msg("meal plan")
		utils.RespondWithError(w, http.StatusInternalServerError, "Interner Fehler")
	}
}

func (h *Handlers) respondView(w http.ResponseWriter, v *DayView, err error) {
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handlers) GetMealPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v, err := h.svc.Get(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"))
	h.respondView(w, v, err)
}

func (h *Handlers) GetWeek(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v, err := h.svc.Week(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"))
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handlers) SaveMealPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in models.MealPlan
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	v, err := h.svc.Save(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), &in)
	h.respondView(w, v, err)
}

func (h *Handlers) DeleteMealPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AddDish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		DishID   string  `json:"dishId"`
		Quantity float64 `json:"quantity"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	v, err := h.svc.AddDish(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), ps.ByName("slot"), in.DishID, in.Quantity)
	h.respondView(w, v, err)
}

func (h *Handlers) UpdateDish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		Quantity float64 `json:"quantity"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	v, err := h.svc.UpdateDishQuantity(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), ps.ByName("slot"), ps.ByName("placementId"), in.Quantity)
	h.respondView(w, v, err)
}

func (h *Handlers) RemoveDish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v, err := h.svc.RemoveDish(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), ps.ByName("slot"), ps.ByName("placementId"))
	h.respondView(w, v, err)
}

func (h *Handlers) AddSport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in models.SportActivity
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	in.ExternalID = ""
	v, err := h.svc.AddSport(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), in)
	h.respondView(w, v, err)
}

func indexParam(ps httprouter.Params) (int, bool) {
	i, err := strconv.Atoi(ps.ByName("index"))
	return i, err == nil
}

func (h *Handlers) RemoveSport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	i, ok := indexParam(ps)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültiger Index")
		return
	}
	v, err := h.svc.RemoveSport(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), i)
	h.respondView(w, v, err)
}

func (h *Handlers) AddTemporaryMeal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in models.TemporaryMeal
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	v, err := h.svc.AddTemporaryMeal(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), in)
	h.respondView(w, v, err)
}

func (h *Handlers) RemoveTemporaryMeal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	i, ok := indexParam(ps)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültiger Index")
		return
	}
	v, err := h.svc.RemoveTemporaryMeal(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), i)
	h.respondView(w, v, err)
}

func (h *Handlers) SetNote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		Note string `json:"note"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	v, err := h.svc.SetNote(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), in.Note)
	h.respondView(w, v, err)
}

func (h *Handlers) SetStomachPain(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		Level *int `json:"level"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	v, err := h.svc.SetStomachPain(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"), in.Level)
	h.respondView(w, v, err)
}

func (h *Handlers) SyncActivities(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	n, v, err := h.svc.SyncActivities(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"))
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"imported": n, "day": v})
}

func (h *Handlers) SyncWellness(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	kcal, err := h.svc.SyncWellness(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("date"))
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"kcalConsumed": kcal})
}

// Snapshot feeds the realtime subscription with the current day.
func (h *Handlers) Snapshot(ctx context.Context, userID, date string) (interface{}, error) {
	v, err := h.svc.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return v.Plan, nil
}
