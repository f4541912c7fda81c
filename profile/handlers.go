package profile

import (
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

// view is what clients see of a profile. The API key never leaves the server.
type view struct {
	Features            models.FeatureToggles `json:"features"`
	IntervalsAthleteID  string                `json:"intervalsAthleteId,omitempty"`
	IntervalsConfigured bool                  `json:"intervalsConfigured"`
}

func toView(p *models.UserProfile) view {
	return view{
		Features:            p.Features,
		IntervalsAthleteID:  p.IntervalsAthleteID,
		IntervalsConfigured: p.IntervalsConfigured(),
	}
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := h.svc.Get(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		log.Error().Err(err).Msg("get profile")
		utils.RespondWithError(w, http.StatusInternalServerError, "Profil konnte nicht geladen werden")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toView(p))
}

func (h *Handlers) EditFeatures(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.FeatureToggles
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	p, err := h.svc.SetFeatures(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		log.Error().Err(err).Msg("save features")
		utils.RespondWithError(w, http.StatusInternalServerError, "Speichern fehlgeschlagen")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toView(p))
}

func (h *Handlers) EditIntervals(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in struct {
		AthleteID string `json:"athleteId"`
		APIKey    string `json:"apiKey"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	if (in.AthleteID == "") != (in.APIKey == "") {
		utils.RespondWithError(w, http.StatusBadRequest, "Athleten-ID und API-Schlüssel werden beide benötigt")
		return
	}
	p, err := h.svc.SetIntervals(r.Context(), utils.GetUserIDFromRequest(r), in.AthleteID, in.APIKey)
	if err != nil {
		log.Error().Err(err).Msg("save intervals credentials")
		utils.RespondWithError(w, http.StatusInternalServerError, "Speichern fehlgeschlagen")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toView(p))
}

func (h *Handlers) DeleteIntervals(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := h.svc.SetIntervals(r.Context(), utils.GetUserIDFromRequest(r), "", "")
	if err != nil {
		log.Error().Err(err).Msg("clear intervals credentials")
		utils.RespondWithError(w, http.StatusInternalServerError, "Speichern fehlgeschlagen")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toView(p))
}
