package notifications

import (
	"context"
	"net/url"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
)

const listLimit = 50

var errNotificationNotFound = svcErr.NewNotFoundError("Notification")

// Service exposes a user's notification feed and push registration.
type Service struct {
	appCtx *app.AppContext
	store  repository.NotificationStore
	subs   *repository.PushRepository
}

func NewNotificationService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		store:  appCtx.Notifier.Store(),
		subs:   repository.NewPushRepository(appCtx.DB),
	}
}

type Feed struct {
	Notifications []db.Notification `json:"notifications"`
	UnreadCount   int64             `json:"unread_count"`
}

func (s *Service) List(ctx context.Context, userID string) (*Feed, error) {
	list, err := s.store.ListForUser(ctx, userID, listLimit)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []db.Notification{}
	}
	return &Feed{Notifications: list, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.store.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return errNotificationNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

type RegisterTokenRequest struct {
	Endpoint string           `json:"endpoint" binding:"required"`
	Keys     SubscriptionKeys `json:"keys" binding:"required"`
}

// RegisterToken stores a browser push subscription for userID.
func (s *Service) RegisterToken(ctx context.Context, userID string, req RegisterTokenRequest) error {
	u, err := url.Parse(req.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return svcErr.NewValidationError("endpoint", "must be an https URL")
	}
	return s.subs.Upsert(ctx, &db.PushSubscription{
		UserID:   userID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
}

// VAPIDKey returns the public key browsers subscribe with, or "" if push is off.
func (s *Service) VAPIDKey() string {
	return s.appCtx.Config.Push.VAPIDPublicKey
}
