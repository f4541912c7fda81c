package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mahlzeit/middleware"
	"mahlzeit/models"
	"mahlzeit/rdx"
)

var ErrTokenRevoked = errors.New("token revoked")

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// Tokens issues and verifies HS256 session tokens. Revoked token ids are
// kept in Redis until the token would have expired anyway.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	cache  *rdx.Cache
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, cache *rdx.Cache) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, cache: cache, now: time.Now}
}

func (t *Tokens) Issue(u *models.User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "mahlzeit",
		},
		Name: u.DisplayName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (t *Tokens) Verify(ctx context.Context, raw string) (middleware.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return middleware.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return middleware.Identity{}, errors.New("invalid token: missing subject")
	}

	revoked, err := t.cache.Exists(ctx, revokedKey(claims.ID))
	if err != nil {
		log.Warn().Err(err).Msg("revocation lookup failed")
	} else if revoked {
		return middleware.Identity{}, ErrTokenRevoked
	}

	return middleware.Identity{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		TokenID:     claims.ID,
	}, nil
}

// Revoke blocks a token id for one token lifetime.
func (t *Tokens) Revoke(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	return t.cache.Mark(ctx, revokedKey(tokenID), t.ttl)
}

func revokedKey(id string) string {
	return "revoked:" + id
}
