package foodsearch

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/utils"
)

type Searcher interface {
	Search(ctx context.Context, query string, page int) (*Page, error)
	Barcode(ctx context.Context, code string) (*Hit, error)
}

type Handlers struct {
	foods Searcher
}

func NewHandlers(foods Searcher) *Handlers {
	return &Handlers{foods: foods}
}

// Search never fails for upstream errors; the client just gets no hits.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	if q == "" {
		utils.RespondWithJSON(w, http.StatusOK, Page{Hits: []Hit{}, Page: page})
		return
	}
	res, err := h.foods.Search(r.Context(), q, page)
	if err != nil {
		log.Warn().Err(err).Str("query", q).Msg("food search failed")
		utils.RespondWithJSON(w, http.StatusOK, Page{Hits: []Hit{}, Page: page})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

func (h *Handlers) Barcode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hit, err := h.foods.Barcode(r.Context(), ps.ByName("code"))
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Produkt nicht gefunden")
	case err != nil:
		log.Warn().Err(err).Str("code", ps.ByName("code")).Msg("barcode lookup failed")
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"hit": nil})
	default:
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"hit": hit})
	}
}
