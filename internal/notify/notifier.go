// Package notify fans a notification out to every channel: the durable
// store, the user's live socket, web push and the event stream.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/degrade"
	"github.com/oggyb/ember/internal/events"
	"github.com/oggyb/ember/internal/push"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/utils/ids"
)

// Notification types.
const (
	TypeNewLike      = "new_like"
	TypeNewMatch     = "new_match"
	TypeNewMessage   = "new_message"
	TypeGift         = "gift"
	TypeMatchWarning = "match_expiring"
	TypeMatchExpired = "match_expired"
	TypePremium      = "premium"
)

type Notifier struct {
	store  repository.NotificationStore
	subs   *repository.PushRepository
	bus    realtime.Bus
	pusher push.Sender
	events events.Publisher
	policy degrade.Policy[struct{}]
	log    *slog.Logger
}

// New builds a Notifier. pusher may be nil to disable web push.
func New(store repository.NotificationStore, subs *repository.PushRepository, bus realtime.Bus,
	pusher push.Sender, pub events.Publisher, timeout time.Duration, log *slog.Logger) *Notifier {
	return &Notifier{
		store:  store,
		subs:   subs,
		bus:    bus,
		pusher: pusher,
		events: pub,
		policy: degrade.Policy[struct{}]{
			Name:    "web_push",
			Timeout: timeout,
			Logger:  log,
			// push failures are logged by the policy and swallowed
			Fallback: func(context.Context, error) (struct{}, error) { return struct{}{}, nil },
		},
		log: log,
	}
}

// Store exposes the durable store for the notifications endpoints.
func (n *Notifier) Store() repository.NotificationStore { return n.store }

// Notify writes the durable row and then delivers it best-effort elsewhere.
func (n *Notifier) Notify(ctx context.Context, userID, typ, title, body string, data map[string]any) (*db.Notification, error) {
	note := &db.Notification{
		ID:        ids.New("notif"),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.store.Create(ctx, note); err != nil {
		return nil, err
	}

	if err := n.bus.Publish(ctx, userID, realtime.NewEvent(realtime.TypeNotification, map[string]any{
		"notification": note,
	})); err != nil {
		n.log.Warn("realtime notification failed", "user_id", userID, "err", err)
	}

	n.sendPush(ctx, note)

	if err := n.events.Publish(ctx, events.NotificationCreated, note); err != nil {
		n.log.Warn("publish notification event failed", "user_id", userID, "err", err)
	}
	return note, nil
}

func (n *Notifier) sendPush(ctx context.Context, note *db.Notification) {
	if n.pusher == nil || n.subs == nil {
		return
	}
	subs, err := n.subs.ListForUser(ctx, note.UserID)
	if err != nil || len(subs) == 0 {
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"title": note.Title,
		"body":  note.Body,
		"type":  note.Type,
		"data":  note.Data,
	})

	for i := range subs {
		sub := &subs[i]
		_, _ = n.policy.Do(ctx, func(ctx context.Context) (struct{}, error) {
			err := n.pusher.Send(ctx, sub, payload)
			if errors.Is(err, push.ErrGone) {
				if derr := n.subs.DeleteByEndpoint(ctx, sub.Endpoint); derr != nil {
					n.log.Warn("delete stale push subscription failed", "err", derr)
				}
				return struct{}{}, nil
			}
			return struct{}{}, err
		})
	}
}
