package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/auth"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/utils/ids"
)

var errEmailTaken = svcErr.NewConflictError("Email already registered")

// Service implements sign-up and sign-in.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	google   *auth.GoogleOAuth
	now      func() time.Time
}

type Option func(*Service)

// WithGoogle replaces the OAuth client built from config.
func WithGoogle(g *auth.GoogleOAuth) Option {
	return func(s *Service) { s.google = g }
}

// NewAccountService creates the account service with dependencies from AppContext.
func NewAccountService(appCtx *app.AppContext, opts ...Option) *Service {
	cfg := appCtx.Config.Auth
	s := &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		sessions: repository.NewSessionRepository(appCtx.DB),
		google:   auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.OAuthStateSecret),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is returned by every sign-in path. SessionToken also goes into the cookie.
type Session struct {
	User         *db.User  `json:"user"`
	SessionToken string    `json:"session_token"`
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account and signs it in.
//
// Behavior:
//   - Emails are compared lower-cased; a taken email is 400 "Email already registered".
//   - New accounts start unverified with an incomplete profile.
//   - Publishes user.registered.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &db.User{
		ID:           ids.New("user"),
		Email:        email,
		PasswordHash: &hash,
		Name:         strings.TrimSpace(req.Name),
		CreatedAt:    now,
		LastActive:   now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errEmailTaken
		}
		return nil, err
	}
	s.announce(ctx, u, "password")
	return s.startSession(ctx, u)
}

// Login checks an email and password. Unknown emails and Google-only
// accounts fail exactly like a wrong password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if u.PasswordHash == nil || !auth.CheckPassword(*u.PasswordHash, req.Password) {
		return nil, svcErr.ErrInvalidCredentials
	}
	return s.startSession(ctx, u)
}

// Logout drops the server-side session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// GoogleLogin returns the consent URL carrying a freshly signed state.
func (s *Service) GoogleLogin() (url, state string, err error) {
	if !s.google.Enabled() {
		return "", "", svcErr.ErrServiceUnavailable.WithMessage("Google sign-in is not configured")
	}
	state = s.google.MakeState()
	return s.google.AuthURL(state), state, nil
}

// GoogleSession completes the OAuth code exchange.
//
// Behavior:
//   - A state that fails the signature check is 400.
//   - Unknown emails get a new account with the Google name and picture.
//   - Existing accounts keep their data; a missing picture is filled in.
func (s *Service) GoogleSession(ctx context.Context, code, state string) (*Session, error) {
	gu, err := s.google.Exchange(ctx, code, state)
	if errors.Is(err, auth.ErrBadState) {
		return nil, svcErr.InvalidArgument("Invalid OAuth state")
	} else if err != nil {
		s.appCtx.Logger.Warn("google exchange failed", "err", err)
		return nil, svcErr.ErrUnauthorized.WithMessage("Google sign-in failed")
	}

	u, err := s.users.FindByEmail(ctx, gu.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := s.now()
		u = &db.User{
			ID:         ids.New("user"),
			Email:      gu.Email,
			Name:       gu.Name,
			CreatedAt:  now,
			LastActive: now,
		}
		if gu.Picture != "" {
			u.Picture = &gu.Picture
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		s.announce(ctx, u, "google")
	case err != nil:
		return nil, err
	case u.Picture == nil && gu.Picture != "":
		u.Picture = &gu.Picture
		if err := s.users.UpdateColumns(ctx, u, "picture"); err != nil {
			return nil, err
		}
	}
	return s.startSession(ctx, u)
}

func (s *Service) startSession(ctx context.Context, u *db.User) (*Session, error) {
	now := s.now()
	sess := &db.UserSession{
		Token:     ids.Token(),
		UserID:    u.ID,
		ExpiresAt: now.Add(s.appCtx.Config.Auth.SessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	access, err := s.appCtx.Auth.Tokens().Issue(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Touch(ctx, u.ID, now); err != nil {
		s.appCtx.Logger.Warn("touch last_active failed", "user_id", u.ID, "err", err)
	}
	return &Session{User: u, SessionToken: sess.Token, AccessToken: access, ExpiresAt: sess.ExpiresAt}, nil
}

func (s *Service) announce(ctx context.Context, u *db.User, method string) {
	err := s.appCtx.Events.Publish(ctx, events.UserRegistered, map[string]any{
		"user_id": u.ID,
		"method":  method,
		"at":      u.CreatedAt,
	})
	if err != nil {
		s.appCtx.Logger.Warn("user.registered publish failed", "user_id", u.ID, "err", err)
	}
}
