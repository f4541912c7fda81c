// Package share exports dish snapshots under short, time-limited codes.
package share

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mahlzeit/dishes"
	"mahlzeit/models"
)

// Alphabet omits I, O, 0 and 1.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	CodeLength = 8
	Lifetime   = 7 * 24 * time.Hour

	maxCreateAttempts = 5
)

var (
	// ErrNotFound covers unknown and expired codes alike.
	ErrNotFound     = errors.New("share not found")
	ErrDishNotFound = errors.New("dish not found")
	ErrCodeTaken    = errors.New("share code already in use")
)

// GenerateCode draws CodeLength characters uniformly from Alphabet.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate share code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Sharer is the identity stamped on a share.
type Sharer struct {
	UserID      string
	DisplayName string
}

// DishStore is the part of the catalogue the share flow needs.
type DishStore interface {
	Get(ctx context.Context, userID, id string) (*models.Dish, error)
	Insert(ctx context.Context, d *models.Dish) error
}

type Service struct {
	shares  Store
	dishes  DishStore
	now     func() time.Time
	newCode func() (string, error)
}

func NewService(shares Store, dishes DishStore) *Service {
	return &Service{shares: shares, dishes: dishes, now: time.Now, newCode: GenerateCode}
}

// Create stores a snapshot of the sharer's dish under a fresh code. The
// snapshot carries no owner id; SharedBy is the only identity exposed.
func (s *Service) Create(ctx context.Context, sharer Sharer, dishID string) (*models.SharedDish, error) {
	dish, err := s.dishes.Get(ctx, sharer.UserID, dishID)
	if errors.Is(err, dishes.ErrNotFound) {
		return nil, ErrDishNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load shared dish: %w", err)
	}
	dish.UserID = ""

	now := s.now().UTC()
	share := &models.SharedDish{
		Dish:       *dish,
		SharedBy:   sharer.DisplayName,
		SharedByID: sharer.UserID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(Lifetime),
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		share.Code = code
		err = s.shares.Insert(ctx, share)
		if err == nil {
			return share, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free share code after %d attempts: %w", maxCreateAttempts, ErrCodeTaken)
}

// Preview returns the active share for a code.
func (s *Service) Preview(ctx context.Context, code string) (*models.SharedDish, error) {
	code = NormalizeCode(code)
	if len(code) != CodeLength {
		return nil, ErrNotFound
	}
	share, err := s.shares.FindActive(ctx, code, s.now().UTC())
	if err != nil {
		return nil, err
	}
	share.Dish.UserID = ""
	return share, nil
}

// Redeem copies the shared dish into userID's catalogue. Codes stay valid
// until they expire.
func (s *Service) Redeem(ctx context.Context, userID, code string) (*models.Dish, error) {
	share, err := s.Preview(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dish := share.Dish
	dish.ID = primitive.NewObjectID()
	dish.UserID = userID
	dish.OriginalID = share.Dish.ID.Hex()
	dish.Source = models.SourceShare
	dish.CreatedAt = now
	dish.UpdatedAt = now
	if dish.Ingredients != nil {
		dish.Ingredients = append([]models.DishIngredient(nil), share.Dish.Ingredients...)
	}

	if err := s.dishes.Insert(ctx, &dish); err != nil {
		return nil, fmt.Errorf("import shared dish: %w", err)
	}
	return &dish, nil
}
