package ai

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"mahlzeit/models"
)

// LabelSourceName replaces the model-supplied source of label scans.
const LabelSourceName = "KI-Etikettenscan"

// Candidate is a validated nutrition estimate the user may accept.
type Candidate struct {
	Name          string               `json:"name"`
	SourceName    string               `json:"sourceName"`
	NutritionUnit models.NutritionUnit `json:"nutritionUnit"`
	Calories      float64              `json:"calories"`
	Protein       float64              `json:"protein"`
	Carbs         float64              `json:"carbs"`
	Fat           float64              `json:"fat"`
}

// ShouldSearch reports whether a query is specific enough to look up:
// at least 3 characters, and either a space or at least 5 characters.
func ShouldSearch(q string) bool {
	q = strings.TrimSpace(q)
	n := utf8.RuneCountInString(q)
	return n >= 3 && (strings.Contains(q, " ") || n >= 5)
}

type rawCandidate struct {
	Name          interface{} `json:"name"`
	SourceName    interface{} `json:"sourceName"`
	NutritionUnit interface{} `json:"nutritionUnit"`
	Calories      interface{} `json:"calories"`
	Protein       interface{} `json:"protein"`
	Carbs         interface{} `json:"carbs"`
	Fat           interface{} `json:"fat"`
}

// ParseCandidate extracts the first {...} span of raw and validates it.
// ok is false when no object is found or name/sourceName are empty.
func ParseCandidate(raw string) (*Candidate, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var rc rawCandidate
	if err := json.Unmarshal([]byte(raw[start:end+1]), &rc); err != nil {
		return nil, false
	}

	c := &Candidate{
		Name:       str(rc.Name),
		SourceName: str(rc.SourceName),
		Calories:   coerce(rc.Calories),
		Protein:    coerce(rc.Protein),
		Carbs:      coerce(rc.Carbs),
		Fat:        coerce(rc.Fat),
	}
	if c.Name == "" || c.SourceName == "" {
		return nil, false
	}
	c.NutritionUnit = models.NutritionUnit(str(rc.NutritionUnit))
	if !c.NutritionUnit.Valid() {
		c.NutritionUnit = models.Per100g
	}
	return c, true
}

func str(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// coerce takes a number or numeric string; anything else is 0. Negative
// results are clamped to 0.
func coerce(v interface{}) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", "."), 64)
		if err == nil {
			f = parsed
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
