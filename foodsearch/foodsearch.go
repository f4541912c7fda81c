// Package foodsearch queries the Open Food Facts product database.
package foodsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mahlzeit/models"
	"mahlzeit/rdx"
)

const (
	pageSize = 20
	cacheTTL = 6 * time.Hour
)

var ErrNotFound = errors.New("product not found")

// Hit is one product with macros per NutritionUnit.
type Hit struct {
	Name          string               `json:"name"`
	Brand         string               `json:"brand,omitempty"`
	Barcode       string               `json:"barcode,omitempty"`
	NutritionUnit models.NutritionUnit `json:"nutritionUnit"`
	Calories      float64              `json:"calories"`
	Protein       float64              `json:"protein"`
	Carbs         float64              `json:"carbs"`
	Fat           float64              `json:"fat"`
}

type Page struct {
	Hits  []Hit `json:"hits"`
	Page  int   `json:"page"`
	Count int   `json:"count"`
}

type product struct {
	Code             string                 `json:"code"`
	ProductName      string                 `json:"product_name"`
	ProductNameDE    string                 `json:"product_name_de"`
	Brands           string                 `json:"brands"`
	Quantity         string                 `json:"quantity"`
	NutritionDataPer string                 `json:"nutrition_data_per"`
	Nutriments       map[string]interface{} `json:"nutriments"`
}

type searchResponse struct {
	Count    interface{} `json:"count"`
	Page     interface{} `json:"page"`
	Products []product   `json:"products"`
}

type barcodeResponse struct {
	Status  interface{} `json:"status"`
	Product product     `json:"product"`
}

type Client struct {
	baseURL string
	client  *http.Client
	cache   *rdx.Cache
}

func NewClient(baseURL string, cache *rdx.Cache) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

const fields = "code,product_name,product_name_de,brands,quantity,nutrition_data_per,nutriments"

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create food request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mahlzeit/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call food database: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read food response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("food database error %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse food response: %w", err)
	}
	return nil
}

// Search returns one page of products matching query. page starts at 1.
func (c *Client) Search(ctx context.Context, query string, page int) (*Page, error) {
	query = strings.TrimSpace(query)
	if page < 1 {
		page = 1
	}
	key := fmt.Sprintf("foods:search:%s:%d", strings.ToLower(query), page)
	var cached Page
	if found, err := c.cache.GetJSON(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Msg("food search cache")
	} else if found {
		return &cached, nil
	}

	q := url.Values{
		"search_terms":  {query},
		"search_simple": {"1"},
		"action":        {"process"},
		"json":          {"1"},
		"page":          {strconv.Itoa(page)},
		"page_size":     {strconv.Itoa(pageSize)},
		"fields":        {fields},
	}
	var resp searchResponse
	if err := c.get(ctx, "/cgi/search.pl", q, &resp); err != nil {
		return nil, err
	}

	out := &Page{Hits: []Hit{}, Page: page, Count: int(number(resp.Count))}
	for _, p := range resp.Products {
		if h, ok := toHit(p); ok {
			out.Hits = append(out.Hits, h)
		}
	}
	if err := c.cache.SetJSON(ctx, key, out, cacheTTL); err != nil {
		log.Warn().Err(err).Msg("food search cache")
	}
	return out, nil
}

// Barcode looks up a single product by EAN.
func (c *Client) Barcode(ctx context.Context, code string) (*Hit, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}
	key := "foods:barcode:" + code
	var cached Hit
	if found, err := c.cache.GetJSON(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Msg("food barcode cache")
	} else if found {
		return &cached, nil
	}

	var resp barcodeResponse
	err := c.get(ctx, "/api/v2/product/"+url.PathEscape(code)+".json", url.Values{"fields": {fields}}, &resp)
	if err != nil {
		return nil, err
	}
	if number(resp.Status) != 1 {
		return nil, ErrNotFound
	}
	if resp.Product.Code == "" {
		resp.Product.Code = code
	}
	h, ok := toHit(resp.Product)
	if !ok {
		return nil, ErrNotFound
	}
	if err := c.cache.SetJSON(ctx, key, h, cacheTTL); err != nil {
		log.Warn().Err(err).Msg("food barcode cache")
	}
	return &h, nil
}

var liquidQuantity = regexp.MustCompile(`(?i)\d\s*(ml|cl|dl|l)\b`)

func isLiquid(p product) bool {
	if strings.EqualFold(strings.ReplaceAll(p.NutritionDataPer, " ", ""), "100ml") {
		return true
	}
	return liquidQuantity.MatchString(p.Quantity)
}

// toHit picks the unit the product reports values for: 100ml for liquids,
// 100g when per-100g values exist, otherwise one serving.
func toHit(p product) (Hit, bool) {
	name := strings.TrimSpace(p.ProductNameDE)
	if name == "" {
		name = strings.TrimSpace(p.ProductName)
	}
	if name == "" {
		return Hit{}, false
	}
	h := Hit{
		Name:    name,
		Brand:   strings.TrimSpace(strings.Split(p.Brands, ",")[0]),
		Barcode: p.Code,
	}

	n := p.Nutriments
	_, has100 := n["energy-kcal_100g"]
	_, hasServing := n["energy-kcal_serving"]
	suffix := "_100g"
	switch {
	case has100 && isLiquid(p):
		h.NutritionUnit = models.Per100ml
	case has100:
		h.NutritionUnit = models.Per100g
	case hasServing:
		h.NutritionUnit = models.PerPiece
		suffix = "_serving"
	default:
		h.NutritionUnit = models.Per100g
	}
	h.Calories = nonNegative(number(n["energy-kcal"+suffix]))
	h.Protein = nonNegative(number(n["proteins"+suffix]))
	h.Carbs = nonNegative(number(n["carbohydrates"+suffix]))
	h.Fat = nonNegative(number(n["fat"+suffix]))
	return h, true
}

// number accepts JSON numbers and numeric strings; anything else is 0.
func number(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", "."), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
