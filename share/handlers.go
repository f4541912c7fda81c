package share

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/utils"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sharer := Sharer{
		UserID:      utils.GetUserIDFromRequest(r),
		DisplayName: utils.GetUserNameFromContext(r.Context()),
	}
	s, err := h.svc.Create(r.Context(), sharer, ps.ByName("id"))
	switch {
	case errors.Is(err, ErrDishNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Gericht nicht gefunden")
		return
	case err != nil:
		log.Error().Err(err).Str("dishId", ps.ByName("id")).Msg("create share")
		utils.RespondWithError(w, http.StatusInternalServerError, "Teilen fehlgeschlagen")
		return
	}
	log.Info().Str("code", s.Code).Str("userId", sharer.UserID).Msg("dish shared")
	utils.RespondWithJSON(w, http.StatusCreated, s)
}

func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, err := h.svc.Preview(r.Context(), ps.ByName("code"))
	if err != nil {
		respondLookupErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, s)
}

func (h *Handlers) Import(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.svc.Redeem(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("code"))
	if err != nil {
		respondLookupErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, d)
}

func respondLookupErr(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Code ungültig oder abgelaufen")
		return
	}
	log.Error().Err(err).Msg("share lookup")
	utils.RespondWithError(w, http.StatusInternalServerError, "Import fehlgeschlagen")
}
