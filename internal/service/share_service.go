package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/sat-explorer/internal/model"
)

var ErrInvalidShareToken = errors.New("invalid share token")

// ShareClaims carries a filter state inside a signed token.
type ShareClaims struct {
	jwt.RegisteredClaims
	MinScore int    `json:"min"`
	MaxScore int    `json:"max"`
	Major    string `json:"major"`
}

// ShareService issues and verifies share links for a filter state.
type ShareService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewShareService creates a new ShareService.
func NewShareService(secret string, expiry time.Duration) *ShareService {
	return &ShareService{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Issue signs p and returns the token with its expiry.
func (s *ShareService) Issue(p model.Params) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.expiry)

	claims := ShareClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		MinScore: p.MinScore,
		MaxScore: p.MaxScore,
		Major:    p.Major,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns the filter state it carries.
func (s *ShareService) Parse(tokenStr string) (model.Params, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ShareClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return model.Params{}, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
	}

	claims, ok := token.Claims.(*ShareClaims)
	if !ok || !token.Valid {
		return model.Params{}, ErrInvalidShareToken
	}
	return model.Params{MinScore: claims.MinScore, MaxScore: claims.MaxScore, Major: claims.Major}, nil
}
