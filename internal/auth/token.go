// Package auth issues and verifies credentials: bcrypt passwords, HS256
// JWTs, server-side sessions and Google OAuth.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperr "github.com/oggyb/ember/internal/errors"
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager signs and parses access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for userID.
func (m *TokenManager) Issue(userID string) (string, error) {
	now := m.now()
	c := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Parse validates token and returns its user id. Failures are
// ErrTokenExpired or ErrInvalidToken.
func (m *TokenManager) Parse(token string) (string, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.ErrTokenExpired
		}
		return "", apperr.ErrInvalidToken
	}

	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UserID == "" {
		return "", apperr.ErrInvalidToken
	}
	return c.UserID, nil
}
