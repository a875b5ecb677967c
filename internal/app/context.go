package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/auth"
	"github.com/oggyb/ember/internal/cache"
	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/notify"
	"github.com/oggyb/ember/internal/push"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
)

// AppContext holds shared dependencies (DB, Redis, Logger, realtime, auth).
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Bus        realtime.Bus
	Registry   *realtime.Registry
	Events     events.Publisher
	Notifier   *notify.Notifier
	Auth       *auth.Authenticator

	notificationStore repository.NotificationStore
	pusher            push.Sender
}

// Option customizes an AppContext before the Notifier is assembled.
type Option func(*AppContext)

func WithEvents(p events.Publisher) Option {
	return func(a *AppContext) { a.Events = p }
}

func WithNotificationStore(s repository.NotificationStore) Option {
	return func(a *AppContext) { a.notificationStore = s }
}

func WithPush(s push.Sender) Option {
	return func(a *AppContext) { a.pusher = s }
}

// New creates a new AppContext. Defaults: no-op events, SQL notification
// store, web push disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger,
	bus realtime.Bus, registry *realtime.Registry, opts ...Option) *AppContext {
	a := &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Bus:        bus,
		Registry:   registry,
	}
	for _, o := range opts {
		o(a)
	}

	if a.Events == nil {
		a.Events = events.NewNoop()
	}
	if a.notificationStore == nil {
		a.notificationStore = repository.NewNotificationRepository(db)
	}
	a.Auth = auth.NewAuthenticator(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		repository.NewSessionRepository(db), repository.NewUserRepository(db))
	a.Notifier = notify.New(a.notificationStore, repository.NewPushRepository(db), bus,
		a.pusher, a.Events, cfg.Push.Timeout, logger)
	return a
}
