package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

// Claims are the JWT claims understood by the API.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.StandardClaims
}

type service struct {
	key []byte
	now func() time.Time
}

// NewService creates an HS256 token service. The key must not be empty.
func NewService(key []byte) (Service, error) {
	if len(key) == 0 {
		return nil, errors.New("auth: signing key is required")
	}
	return &service{key: key, now: time.Now}, nil
}

func (s *service) Issue(_ context.Context, id Identity, ttl time.Duration) (string, error) {
	if id.ID == "" {
		return "", errors.New("auth: identity id is required")
	}
	now := s.now()
	claims := &Claims{
		Name: id.Name,
		Role: id.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   id.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

func (s *service) Verify(_ context.Context, tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return Identity{}, &apperr.UnauthorizedError{Reason: err.Error()}
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, &apperr.UnauthorizedError{Reason: "invalid token"}
	}
	return Identity{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}
