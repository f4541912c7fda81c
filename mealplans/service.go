// Package mealplans manages the per-day meal plans and their derived totals.
package mealplans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mahlzeit/dishes"
	"mahlzeit/goals"
	"mahlzeit/intervals"
	"mahlzeit/models"
	"mahlzeit/mq"
	"mahlzeit/nutrition"
	"mahlzeit/utils"
)

var (
	ErrInvalid            = errors.New("invalid meal plan change")
	ErrDishNotFound       = errors.New("dish not found")
	ErrPlacementNotFound  = errors.New("planned dish not found")
	ErrIndexOutOfRange    = errors.New("entry not found")
	ErrIntervalsNotLinked = errors.New("intervals.icu not configured")
)

type DishSource interface {
	Get(ctx context.Context, userID, id string) (*models.Dish, error)
}

type GoalSource interface {
	Effective(ctx context.Context, userID string, day time.Time) (goals.Effective, error)
}

type CredentialSource interface {
	Credentials(ctx context.Context, userID string) (athleteID, apiKey string, ok bool, err error)
}

type Fitness interface {
	Activities(ctx context.Context, creds intervals.Credentials, date string) ([]intervals.Activity, error)
	UpsertWellness(ctx context.Context, creds intervals.Credentials, date string, kcalConsumed int) error
}

// DayView is a plan with its derived numbers.
type DayView struct {
	Plan    *models.MealPlan  `json:"plan"`
	Totals  nutrition.Totals  `json:"totals"`
	Burned  float64           `json:"burned"`
	Goals   goals.Effective   `json:"goals"`
	Balance nutrition.Balance `json:"balance"`
}

type DaySummary struct {
	Date    string            `json:"date"`
	Planned bool              `json:"planned"`
	Totals  nutrition.Totals  `json:"totals"`
	Burned  float64           `json:"burned"`
	Balance nutrition.Balance `json:"balance"`
}

type WeekView struct {
	WeekStart string           `json:"weekStart"`
	Goals     goals.Effective  `json:"goals"`
	Days      []DaySummary     `json:"days"`
	Totals    nutrition.Totals `json:"totals"`
	Burned    float64          `json:"burned"`
	// Average is the mean over planned days only.
	Average nutrition.Totals `json:"average"`
}

type Service struct {
	store   Store
	dishes  DishSource
	goals   GoalSource
	creds   CredentialSource
	fitness Fitness
	bus     *mq.Bus
	now     func() time.Time
	newID   func() string
}

type Options struct {
	Dishes      DishSource
	Goals       GoalSource
	Credentials CredentialSource
	Fitness     Fitness
	Bus         *mq.Bus
}

func NewService(store Store, o Options) *Service {
	return &Service{
		store:   store,
		dishes:  o.Dishes,
		goals:   o.Goals,
		creds:   o.Credentials,
		fitness: o.Fitness,
		bus:     o.Bus,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func parseDate(date string) (time.Time, error) {
	return utils.ParseDate(date)
}

// load returns the stored plan or a fresh empty one.
func (s *Service) load(ctx context.Context, userID, date string) (*models.MealPlan, bool, error) {
	p, err := s.store.Get(ctx, userID, date)
	if errors.Is(err, ErrNotFound) {
		return models.NewMealPlan(userID, date), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *Service) effectiveGoals(ctx context.Context, userID string, day time.Time) goals.Effective {
	if s.goals == nil {
		return goals.Effective{Source: "none"}
	}
	g, err := s.goals.Effective(ctx, userID, day)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("load goals")
		return goals.Effective{Source: "none"}
	}
	return g
}

func (s *Service) view(ctx context.Context, p *models.MealPlan, day time.Time) *DayView {
	g := s.effectiveGoals(ctx, p.UserID, day)
	return &DayView{
		Plan:    p,
		Totals:  nutrition.DayTotals(p),
		Burned:  nutrition.BurnedCalories(p.SportActivities),
		Goals:   g,
		Balance: nutrition.DayBalance(p, g.Goals),
	}
}

func (s *Service) Get(ctx context.Context, userID, date string) (*DayView, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	p, _, err := s.load(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p, day), nil
}

func (s *Service) persist(ctx context.Context, p *models.MealPlan, event string) error {
	p.Normalize()
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, p); err != nil {
		return err
	}
	_ = s.bus.Emit(event, mq.Index{
		EntityType: "mealplan",
		Method:     "PUT",
		EntityId:   p.Date,
		UserID:     p.UserID,
		Payload:    p,
	})
	return nil
}

// mutate loads the plan, applies fn and saves the result.
func (s *Service) mutate(ctx context.Context, userID, date, event string, fn func(p *models.MealPlan) error) (*DayView, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	p, _, err := s.load(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, p, event); err != nil {
		return nil, err
	}
	return s.view(ctx, p, day), nil
}

// Save replaces the whole plan of date.
func (s *Service) Save(ctx context.Context, userID, date string, in *models.MealPlan) (*DayView, error) {
	return s.mutate(ctx, userID, date, "mealplan-saved", func(p *models.MealPlan) error {
		for _, slot := range models.MealSlots {
			list := *in.Slot(slot)
			for i := range list {
				if list[i].ID == "" {
					list[i].ID = s.newID()
				}
				if list[i].Quantity <= 0 || math.IsNaN(list[i].Quantity) {
					list[i].Quantity = 1
				}
			}
			*p.Slot(slot) = list
		}
		for _, a := range in.SportActivities {
			if a.Calories < 0 {
				return fmt.Errorf("%w: negative sport calories", ErrInvalid)
			}
		}
		if err := validatePain(in.StomachPain); err != nil {
			return err
		}
		p.SportActivities = in.SportActivities
		p.TemporaryMeals = in.TemporaryMeals
		p.Note = in.Note
		p.StomachPain = in.StomachPain
		return nil
	})
}

func slotOf(slot string) (models.MealSlot, error) {
	s := models.MealSlot(slot)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown meal slot %q", ErrInvalid, slot)
	}
	return s, nil
}

// AddDish copies a catalogue dish into slot. Quantities <= 0 become 1.
func (s *Service) AddDish(ctx context.Context, userID, date, slot, dishID string, quantity float64) (*DayView, error) {
	ms, err := slotOf(slot)
	if err != nil {
		return nil, err
	}
	if _, err := parseDate(date); err != nil {
		return nil, err
	}
	d, err := s.dishes.Get(ctx, userID, dishID)
	if err != nil {
		if errors.Is(err, dishes.ErrNotFound) {
			return nil, ErrDishNotFound
		}
		return nil, err
	}
	return s.mutate(ctx, userID, date, "mealplan-dish-added", func(p *models.MealPlan) error {
		list := p.Slot(ms)
		*list = append(*list, dishes.ToPlanned(d, s.newID(), quantity))
		return nil
	})
}

func (s *Service) UpdateDishQuantity(ctx context.Context, userID, date, slot, placementID string, quantity float64) (*DayView, error) {
	ms, err := slotOf(slot)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalid)
	}
	return s.mutate(ctx, userID, date, "mealplan-dish-updated", func(p *models.MealPlan) error {
		list := *p.Slot(ms)
		for i := range list {
			if list[i].ID == placementID {
				list[i].Quantity = quantity
				return nil
			}
		}
		return ErrPlacementNotFound
	})
}

func (s *Service) RemoveDish(ctx context.Context, userID, date, slot, placementID string) (*DayView, error) {
	ms, err := slotOf(slot)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, date, "mealplan-dish-removed", func(p *models.MealPlan) error {
		list := p.Slot(ms)
		for i, d := range *list {
			if d.ID == placementID {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return nil
			}
		}
		return ErrPlacementNotFound
	})
}

func (s *Service) AddSport(ctx context.Context, userID, date string, a models.SportActivity) (*DayView, error) {
	if a.Calories < 0 || math.IsNaN(a.Calories) {
		return nil, fmt.Errorf("%w: calories must not be negative", ErrInvalid)
	}
	a.Description = strings.TrimSpace(a.Description)
	return s.mutate(ctx, userID, date, "mealplan-sport-added", func(p *models.MealPlan) error {
		p.SportActivities = append(p.SportActivities, a)
		return nil
	})
}

func (s *Service) RemoveSport(ctx context.Context, userID, date string, index int) (*DayView, error) {
	return s.mutate(ctx, userID, date, "mealplan-sport-removed", func(p *models.MealPlan) error {
		if index < 0 || index >= len(p.SportActivities) {
			return ErrIndexOutOfRange
		}
		p.SportActivities = append(p.SportActivities[:index:index], p.SportActivities[index+1:]...)
		return nil
	})
}

func (s *Service) AddTemporaryMeal(ctx context.Context, userID, date string, m models.TemporaryMeal) (*DayView, error) {
	m.Description = strings.TrimSpace(m.Description)
	if m.Description == "" {
		return nil, fmt.Errorf("%w: description required", ErrInvalid)
	}
	return s.mutate(ctx, userID, date, "mealplan-meal-added", func(p *models.MealPlan) error {
		p.TemporaryMeals = append(p.TemporaryMeals, m)
		return nil
	})
}

func (s *Service) RemoveTemporaryMeal(ctx context.Context, userID, date string, index int) (*DayView, error) {
	return s.mutate(ctx, userID, date, "mealplan-meal-removed", func(p *models.MealPlan) error {
		if index < 0 || index >= len(p.TemporaryMeals) {
			return ErrIndexOutOfRange
		}
		p.TemporaryMeals = append(p.TemporaryMeals[:index:index], p.TemporaryMeals[index+1:]...)
		return nil
	})
}

func (s *Service) SetNote(ctx context.Context, userID, date, note string) (*DayView, error) {
	return s.mutate(ctx, userID, date, "mealplan-note", func(p *models.MealPlan) error {
		p.Note = strings.TrimSpace(note)
		return nil
	})
}

func validatePain(level *int) error {
	if level != nil && (*level < 0 || *level > 10) {
		return fmt.Errorf("%w: stomach pain must be between 0 and 10", ErrInvalid)
	}
	return nil
}

// SetStomachPain stores a 0..10 level; nil clears it.
func (s *Service) SetStomachPain(ctx context.Context, userID, date string, level *int) (*DayView, error) {
	if err := validatePain(level); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, date, "mealplan-stomach-pain", func(p *models.MealPlan) error {
		p.StomachPain = level
		return nil
	})
}

// Delete removes the whole day.
func (s *Service) Delete(ctx context.Context, userID, date string) error {
	if _, err := parseDate(date); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, date); err != nil {
		return err
	}
	_ = s.bus.Emit("mealplan-deleted", mq.Index{
		EntityType: "mealplan",
		Method:     "DELETE",
		EntityId:   date,
		UserID:     userID,
		Payload:    models.NewMealPlan(userID, date),
	})
	return nil
}

// Week summarises Monday..Sunday of the week containing date.
func (s *Service) Week(ctx context.Context, userID, date string) (*WeekView, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	start := goals.WeekStart(day)
	end := start.AddDate(0, 0, 6)
	plans, err := s.store.Range(ctx, userID, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]*models.MealPlan, len(plans))
	for i := range plans {
		byDate[plans[i].Date] = &plans[i]
	}

	g := s.effectiveGoals(ctx, userID, start)
	w := &WeekView{WeekStart: start.Format(models.DateLayout), Goals: g, Days: make([]DaySummary, 0, 7)}
	planned := 0
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i).Format(models.DateLayout)
		p, ok := byDate[d]
		if !ok {
			p = models.NewMealPlan(userID, d)
		}
		sum := DaySummary{
			Date:    d,
			Planned: ok,
			Totals:  nutrition.DayTotals(p),
			Burned:  nutrition.BurnedCalories(p.SportActivities),
			Balance: nutrition.DayBalance(p, g.Goals),
		}
		w.Days = append(w.Days, sum)
		w.Totals = w.Totals.Add(sum.Totals)
		w.Burned += sum.Burned
		if ok {
			planned++
		}
	}
	if planned > 0 {
		w.Average = w.Totals.Scale(1 / float64(planned))
	}
	return w, nil
}

// Recent returns the stored plans of the last n days up to and including today.
func (s *Service) Recent(ctx context.Context, userID string, n int) ([]models.MealPlan, error) {
	today := s.now().UTC()
	from := today.AddDate(0, 0, -(n - 1))
	return s.store.Range(ctx, userID, from.Format(models.DateLayout), today.Format(models.DateLayout))
}

func (s *Service) credentials(ctx context.Context, userID string) (intervals.Credentials, error) {
	if s.creds == nil || s.fitness == nil {
		return intervals.Credentials{}, ErrIntervalsNotLinked
	}
	athlete, key, ok, err := s.creds.Credentials(ctx, userID)
	if err != nil {
		return intervals.Credentials{}, err
	}
	if !ok {
		return intervals.Credentials{}, ErrIntervalsNotLinked
	}
	return intervals.Credentials{AthleteID: athlete, APIKey: key}, nil
}

// SyncActivities imports the day's activities from intervals.icu. Activities
// already present (same external id) are skipped.
func (s *Service) SyncActivities(ctx context.Context, userID, date string) (int, *DayView, error) {
	if _, err := parseDate(date); err != nil {
		return 0, nil, err
	}
	creds, err := s.credentials(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	acts, err := s.fitness.Activities(ctx, creds, date)
	if err != nil {
		return 0, nil, err
	}

	imported := 0
	v, err := s.mutate(ctx, userID, date, "mealplan-sport-synced", func(p *models.MealPlan) error {
		seen := make(map[string]bool, len(p.SportActivities))
		for _, a := range p.SportActivities {
			if a.ExternalID != "" {
				seen[a.ExternalID] = true
			}
		}
		for _, a := range acts {
			if a.ID == "" || seen[a.ID] || a.Calories <= 0 {
				continue
			}
			desc := a.Name
			if desc == "" {
				desc = a.Type
			}
			p.SportActivities = append(p.SportActivities, models.SportActivity{
				Calories:    math.Round(a.Calories),
				Description: desc,
				ExternalID:  a.ID,
			})
			seen[a.ID] = true
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	log.Info().Str("userId", userID).Str("date", date).Int("imported", imported).Msg("activities synced")
	return imported, v, nil
}

// SyncWellness pushes the day's consumed calories, rounded, to intervals.icu.
func (s *Service) SyncWellness(ctx context.Context, userID, date string) (int, error) {
	if _, err := parseDate(date); err != nil {
		return 0, err
	}
	creds, err := s.credentials(ctx, userID)
	if err != nil {
		return 0, err
	}
	p, _, err := s.load(ctx, userID, date)
	if err != nil {
		return 0, err
	}
	kcal := int(math.Round(nutrition.DayTotals(p).Calories))
	if err := s.fitness.UpsertWellness(ctx, creds, date, kcal); err != nil {
		return 0, err
	}
	return kcal, nil
}
