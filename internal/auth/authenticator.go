package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
	apperr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
)

// Authenticator resolves a session token or a JWT to its user.
type Authenticator struct {
	tokens   *TokenManager
	sessions *repository.SessionRepository
	users    *repository.UserRepository
}

func NewAuthenticator(tokens *TokenManager, sessions *repository.SessionRepository, users *repository.UserRepository) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, users: users}
}

// Authenticate tries token as a session first, then as a JWT.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*db.User, error) {
	if token == "" {
		return nil, apperr.ErrUnauthorized
	}

	userID := ""
	s, err := a.sessions.FindValid(ctx, token, time.Now())
	switch {
	case err == nil:
		userID = s.UserID
	case errors.Is(err, gorm.ErrRecordNotFound):
		userID, err = a.tokens.Parse(token)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	u, err := a.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUnauthorized.WithMessage("User not found")
	}
	return u, err
}

// AuthenticateRequest resolves the caller from the session cookie and the bearer token.
//
// Behavior:
//   - The cookie is only ever a session token. An unknown or expired one is skipped.
//   - The bearer token is then tried as a session token or a JWT.
//   - With neither resolving, the bearer error wins, else "Not authenticated".
func (a *Authenticator) AuthenticateRequest(ctx context.Context, cookie, bearer string) (*db.User, error) {
	if cookie != "" {
		s, err := a.sessions.FindValid(ctx, cookie, time.Now())
		switch {
		case err == nil:
			u, err := a.users.FindByID(ctx, s.UserID)
			if err == nil {
				return u, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	if bearer == "" {
		return nil, apperr.ErrUnauthorized
	}
	return a.Authenticate(ctx, bearer)
}

// Tokens exposes the JWT manager for login handlers.
func (a *Authenticator) Tokens() *TokenManager { return a.tokens }
