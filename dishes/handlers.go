package dishes

import (
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"mahlzeit/models"
	"mahlzeit/utils"
)

type Handlers struct {
	store Store
	now   func() time.Time
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store, now: time.Now}
}

// dishInput is the writable part of a dish.
type dishInput struct {
	Name        string                  `json:"name"`
	Calories    float64                 `json:"calories"`
	Protein     float64                 `json:"protein"`
	Carbs       float64                 `json:"carbs"`
	Fat         float64                 `json:"fat"`
	Category    models.DishCategory     `json:"category"`
	Rating      int                     `json:"rating"`
	Recipe      string                  `json:"recipe"`
	RecipeURL   string                  `json:"recipeUrl"`
	Ingredients []models.DishIngredient `json:"ingredients"`
	Source      string                  `json:"source"`
}

func (in dishInput) apply(d *models.Dish) {
	d.Name = in.Name
	d.Calories, d.Protein, d.Carbs, d.Fat = in.Calories, in.Protein, in.Carbs, in.Fat
	d.Category = in.Category
	d.Rating = in.Rating
	d.Recipe = in.Recipe
	d.RecipeURL = in.RecipeURL
	d.Ingredients = in.Ingredients
	if in.Source != "" {
		d.Source = in.Source
	}
}

func respondErr(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Gericht nicht gefunden")
	case errors.Is(err, ErrInvalid):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("op", op).Msg("dish store")
		utils.RespondWithError(w, http.StatusInternalServerError, "Interner Fehler")
	}
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	offset, limit := utils.Paging(r, 50)
	cat := models.DishCategory(q.Get("category"))
	if !cat.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Unbekannte Kategorie")
		return
	}

	dishes, err := h.store.List(r.Context(), utils.GetUserIDFromRequest(r), ListQuery{
		Search:   q.Get("search"),
		Category: cat,
		Sort:     q.Get("sort"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		respondErr(w, err, "list")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dishes)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.store.Get(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id"))
	if err != nil {
		respondErr(w, err, "get")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, d)
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in dishInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	now := h.now().UTC()
	d := &models.Dish{UserID: utils.GetUserIDFromRequest(r), CreatedAt: now, UpdatedAt: now}
	in.apply(d)
	if err := Prepare(d); err != nil {
		respondErr(w, err, "create")
		return
	}
	if err := h.store.Insert(r.Context(), d); err != nil {
		respondErr(w, err, "create")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, d)
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in dishInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	d, err := h.store.Get(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id"))
	if err != nil {
		respondErr(w, err, "update")
		return
	}
	in.apply(d)
	d.UpdatedAt = h.now().UTC()
	if err := Prepare(d); err != nil {
		respondErr(w, err, "update")
		return
	}
	if err := h.store.Update(r.Context(), d); err != nil {
		respondErr(w, err, "update")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, d)
}

func (h *Handlers) Rate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		Rating int `json:"rating"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Ungültige Anfrage")
		return
	}
	userID := utils.GetUserIDFromRequest(r)
	d, err := h.store.Get(r.Context(), userID, ps.ByName("id"))
	if err != nil {
		respondErr(w, err, "rate")
		return
	}
	if err := ValidateRating(d.Category, in.Rating); err != nil {
		respondErr(w, err, "rate")
		return
	}
	if err := h.store.SetRating(r.Context(), userID, ps.ByName("id"), in.Rating); err != nil {
		respondErr(w, err, "rate")
		return
	}
	d.Rating = in.Rating
	utils.RespondWithJSON(w, http.StatusOK, d)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.store.Delete(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id")); err != nil {
		respondErr(w, err, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	counts, err := h.store.Categories(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		respondErr(w, err, "categories")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, counts)
}
