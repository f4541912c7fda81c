package ai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"mahlzeit/foodsearch"
	"mahlzeit/rdx"
)

const (
	Timeout      = 15 * time.Second
	cacheTTL     = 24 * time.Hour
	maxImageSide = 1024
)

// FoodSearcher is the food-database fallback for text lookups.
type FoodSearcher interface {
	Search(ctx context.Context, query string, page int) (*foodsearch.Page, error)
}

// Result carries a nil Candidate when there is nothing to suggest.
type Result struct {
	Candidate *Candidate `json:"result"`
	Fallback  bool       `json:"fallback,omitempty"`
}

type Service struct {
	provider *Provider
	foods    FoodSearcher
	cache    *rdx.Cache
	timeout  time.Duration
}

func NewService(provider *Provider, foods FoodSearcher, cache *rdx.Cache) *Service {
	return &Service{provider: provider, foods: foods, cache: cache, timeout: Timeout}
}

func (s *Service) Available() bool {
	return s.provider.Available()
}

const textPrompt = `Du bist eine Nährwertdatenbank. Gib für das Lebensmittel %q die typischen Nährwerte zurück.
Antworte ausschließlich mit einem JSON-Objekt der Form
{"name": string, "sourceName": string, "nutritionUnit": "100g" | "100ml" | "1 Stück", "calories": number, "protein": number, "carbs": number, "fat": number}.
sourceName nennt die Quelle der Werte. Flüssigkeiten pro 100ml, Stückware pro "1 Stück", sonst pro 100g.`

const labelPrompt = `Das Bild zeigt die Nährwerttabelle eines Produkts. Lies die Werte ab und bestimme den Produktnamen aus der Verpackung.
Verwende die Angaben pro 100g bzw. pro 100ml, nicht pro Portion.
Antworte ausschließlich mit einem JSON-Objekt der Form
{"name": string, "sourceName": string, "nutritionUnit": "100g" | "100ml", "calories": number, "protein": number, "carbs": number, "fat": number}.`

// generate races the model against the timeout. A late answer is dropped.
func (s *Service) generate(ctx context.Context, prompt string, img []byte, mime string) (string, bool) {
	gen, err := s.provider.Get()
	if err != nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		text, err := gen.Generate(ctx, prompt, img, mime)
		ch <- reply{text, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			log.Warn().Err(r.err).Msg("ai lookup failed")
			return "", false
		}
		return r.text, true
	case <-ctx.Done():
		log.Info().Err(ctx.Err()).Msg("ai lookup timed out")
		return "", false
	}
}

func cacheKey(kind, q string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(strings.Fields(q), " "))))
	return "ai:" + kind + ":" + hex.EncodeToString(sum[:12])
}

// LookupText returns a candidate for q or, when the model has none, the
// first food-database hit marked as fallback. Queries that fail ShouldSearch
// yield an empty result without any call.
func (s *Service) LookupText(ctx context.Context, q string) Result {
	q = strings.TrimSpace(q)
	if !ShouldSearch(q) {
		return Result{}
	}
	key := cacheKey("text", q)
	var cached Result
	if found, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Msg("ai cache")
	} else if found {
		return cached
	}

	var res Result
	if raw, ok := s.generate(ctx, fmt.Sprintf(textPrompt, q), nil, ""); ok {
		if c, ok := ParseCandidate(raw); ok {
			res.Candidate = c
		}
	}
	if res.Candidate == nil {
		res = s.fallback(ctx, q)
	}
	if res.Candidate != nil && ctx.Err() == nil {
		if err := s.cache.SetJSON(ctx, key, res, cacheTTL); err != nil {
			log.Warn().Err(err).Msg("ai cache")
		}
	}
	return res
}

func (s *Service) fallback(ctx context.Context, q string) Result {
	if s.foods == nil || ctx.Err() != nil {
		return Result{}
	}
	page, err := s.foods.Search(ctx, q, 1)
	if err != nil || len(page.Hits) == 0 {
		return Result{}
	}
	h := page.Hits[0]
	name := h.Name
	if h.Brand != "" {
		name += " (" + h.Brand + ")"
	}
	return Result{
		Candidate: &Candidate{
			Name:          name,
			SourceName:    "Open Food Facts",
			NutritionUnit: h.NutritionUnit,
			Calories:      h.Calories,
			Protein:       h.Protein,
			Carbs:         h.Carbs,
			Fat:           h.Fat,
		},
		Fallback: true,
	}
}

// PrepareImage decodes an uploaded image, fits it into maxImageSide and
// re-encodes it as JPEG.
func PrepareImage(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode label image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		img = imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode label image: %w", err)
	}
	return buf.Bytes(), nil
}

// ScanLabel reads a nutrition label photo. The source name of a valid answer
// is always LabelSourceName.
func (s *Service) ScanLabel(ctx context.Context, raw []byte) Result {
	img, err := PrepareImage(raw)
	if err != nil {
		log.Warn().Err(err).Msg("label scan")
		return Result{}
	}
	text, ok := s.generate(ctx, labelPrompt, img, "image/jpeg")
	if !ok {
		return Result{}
	}
	c, ok := ParseCandidate(text)
	if !ok {
		return Result{}
	}
	c.SourceName = LabelSourceName
	return Result{Candidate: c}
}
