package suggestions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mahlzeit/dishes"
	"mahlzeit/globals"
	"mahlzeit/models"
)

type listed struct {
	dishes []models.Dish
	got    dishes.ListQuery
}

func (l *listed) List(_ context.Context, _ string, q dishes.ListQuery) ([]models.Dish, error) {
	l.got = q
	return l.dishes, nil
}

type history []models.MealPlan

func (h history) Recent(context.Context, string, int) ([]models.MealPlan, error) {
	return h, nil
}

func dish(name string, rating int) models.Dish {
	return models.Dish{ID: primitive.NewObjectID(), Name: name, Rating: rating, Category: models.CategoryMainDish}
}

func TestSuggestSkipsRecentlyEaten(t *testing.T) {
	curry, pasta, soup := dish("Curry", 5), dish("Pasta", 4), dish("Suppe", 3)
	l := &listed{dishes: []models.Dish{curry, pasta, soup}}
	plan := models.NewMealPlan("u1", "2024-05-01")
	plan.Dinner = []models.PlannedDish{{ID: "p1", OriginalID: curry.ID.Hex()}}

	out, err := Suggest(context.Background(), l, history{*plan}, "u1", models.CategoryMainDish, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Pasta", out[0].Name)
	assert.Equal(t, "rating", l.got.Sort)
	assert.Equal(t, models.CategoryMainDish, l.got.Category)
}

func TestDishesHandler(t *testing.T) {
	l := &listed{dishes: []models.Dish{dish("Curry", 5)}}
	h := NewHandlers(l, history{})

	req := httptest.NewRequest(http.MethodGet, "/suggestions/dishes?category=mainDish&limit=500", nil)
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, "u1"))
	rec := httptest.NewRecorder()
	h.Dishes(rec, req, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []models.Dish
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 1)

	rec = httptest.NewRecorder()
	h.Dishes(rec, httptest.NewRequest(http.MethodGet, "/suggestions/dishes?category=dessert", nil), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
