package goals

import (
	"errors"
	"net/http"

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
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Keine Wochenziele vorhanden")
	case errors.Is(err, ErrInvalid), errors.Is(err, utils.ErrInvalidDate):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("goals")
		utils.RespondWithError(w, http.StatusInternalServerError, "Interner Fehler")
	}
}

func (h *Handlers) GetGlobal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	g, err := h.svc.Global(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, g)
}

func (h *Handlers) PutGlobal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.Goals
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	g, err := h.svc.SaveGlobal(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, g)
}

func (h *Handlers) GetWeekly(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day, err := utils.ParseDate(ps.ByName("date"))
	if err != nil {
		respondErr(w, err)
		return
	}
	g, err := h.svc.Weekly(r.Context(), utils.GetUserIDFromRequest(r), day)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, g)
}

func (h *Handlers) PutWeekly(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day, err := utils.ParseDate(ps.ByName("date"))
	if err != nil {
		respondErr(w, err)
		return
	}
	var in models.Goals
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	g, err := h.svc.SaveWeekly(r.Context(), utils.GetUserIDFromRequest(r), day, in)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, g)
}

func (h *Handlers) DeleteWeekly(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day, err := utils.ParseDate(ps.ByName("date"))
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := h.svc.DeleteWeekly(r.Context(), utils.GetUserIDFromRequest(r), day); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetEffective(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day, err := utils.ParseDate(ps.ByName("date"))
	if err != nil {
		respondErr(w, err)
		return
	}
	eff, err := h.svc.Effective(r.Context(), utils.GetUserIDFromRequest(r), day)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, eff)
}
