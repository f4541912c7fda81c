package foodsearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mahlzeit/models"
)

const searchBody = `{
  "count": "3",
  "page": 1,
  "products": [
    {"code": "4000000000001", "product_name": "Vollmilch", "brands": "Hof, Marke", "quantity": "1 l",
     "nutriments": {"energy-kcal_100g": 64, "proteins_100g": 3.4, "carbohydrates_100g": 4.8, "fat_100g": "3,5"}},
    {"code": "4000000000002", "product_name": "Haferflocken", "product_name_de": "Kernige Haferflocken", "quantity": "500 g",
     "nutriments": {"energy-kcal_100g": 372, "proteins_100g": 13.5, "carbohydrates_100g": 58.7, "fat_100g": 7}},
    {"code": "4000000000003", "product_name": "Riegel",
     "nutriments": {"energy-kcal_serving": 210, "proteins_serving": 4, "carbohydrates_serving": 25, "fat_serving": -1}},
    {"code": "4000000000004", "product_name": "  "}
  ]
}`

func TestSearchMapsUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		assert.Equal(t, "milch", r.URL.Query().Get("search_terms"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL, nil).Search(context.Background(), " milch ", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Hits, 3)

	milk := page.Hits[0]
	assert.Equal(t, models.Per100ml, milk.NutritionUnit)
	assert.Equal(t, "Hof", milk.Brand)
	assert.Equal(t, 3.5, milk.Fat)

	oats := page.Hits[1]
	assert.Equal(t, "Kernige Haferflocken", oats.Name)
	assert.Equal(t, models.Per100g, oats.NutritionUnit)
	assert.Equal(t, 372.0, oats.Calories)

	bar := page.Hits[2]
	assert.Equal(t, models.PerPiece, bar.NutritionUnit)
	assert.Equal(t, 210.0, bar.Calories)
	assert.Equal(t, 0.0, bar.Fat)
}

func TestBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/product/4011.json":
			_, _ = w.Write([]byte(`{"status":1,"product":{"product_name":"Apfelsaft","nutrition_data_per":"100ml","nutriments":{"energy-kcal_100g":46}}}`))
		default:
			_, _ = w.Write([]byte(`{"status":0}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	hit, err := c.Barcode(context.Background(), "4011")
	require.NoError(t, err)
	assert.Equal(t, "4011", hit.Barcode)
	assert.Equal(t, models.Per100ml, hit.NutritionUnit)

	_, err = c.Barcode(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Search(context.Background(), "brot", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

type failing struct{}

func (failing) Search(context.Context, string, int) (*Page, error) {
	return nil, errors.New("down")
}

func (failing) Barcode(context.Context, string) (*Hit, error) {
	return nil, ErrNotFound
}

func TestHandlersDegrade(t *testing.T) {
	h := NewHandlers(failing{})
	router := httprouter.New()
	router.GET("/foods/search", h.Search)
	router.GET("/foods/barcode/:code", h.Barcode)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/foods/search?q=brot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Hits)
	assert.NotNil(t, page.Hits)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/foods/barcode/123", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
