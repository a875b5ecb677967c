package gifts

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/notify"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/participant"
	"github.com/oggyb/ember/internal/utils/ids"
)

const (
	maxGiftMessage = 500
	receivedLimit  = 50
)

// Gift is one catalog entry.
type Gift struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Points      int    `json:"points"`
	PremiumOnly bool   `json:"premium_only"`
}

var catalog = []Gift{
	{ID: "rose", Name: "Rose", Emoji: "🌹", Points: 10},
	{ID: "coffee", Name: "Coffee", Emoji: "☕", Points: 15},
	{ID: "heart", Name: "Heart", Emoji: "❤️", Points: 20},
	{ID: "chocolate", Name: "Chocolate", Emoji: "🍫", Points: 25},
	{ID: "teddy", Name: "Teddy Bear", Emoji: "🧸", Points: 40},
	{ID: "bouquet", Name: "Bouquet", Emoji: "💐", Points: 50, PremiumOnly: true},
	{ID: "champagne", Name: "Champagne", Emoji: "🍾", Points: 75, PremiumOnly: true},
	{ID: "diamond", Name: "Diamond", Emoji: "💎", Points: 100, PremiumOnly: true},
}

func findGift(id string) (Gift, bool) {
	for _, g := range catalog {
		if g.ID == id {
			return g, true
		}
	}
	return Gift{}, false
}

// Service sends virtual gifts inside a conversation.
type Service struct {
	appCtx  *app.AppContext
	gifts   *repository.GiftRepository
	matches *repository.MatchRepository
	guard   *participant.Guard
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewGiftService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx:  appCtx,
		gifts:   repository.NewGiftRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
		guard:   participant.New(appCtx.DB),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Catalog() []Gift { return catalog }

type SendRequest struct {
	MatchID string `json:"match_id" binding:"required"`
	GiftID  string `json:"gift_id" binding:"required"`
	Message string `json:"message"`
}

type Sent struct {
	Gift    *db.VirtualGift `json:"gift"`
	Message *db.Message     `json:"message"`
}

// Send delivers a gift to the sender's match partner.
//
// Behavior:
//   - The sender must be an unblocked participant of the match.
//   - Premium-only gifts need an active premium plan.
//   - The gift row and its chat message are written together.
//   - The partner gets new_message, gift_received and a notification.
//
// Example:
//
//	Send(ctx, alice, {match_id: m, gift_id: "rose", message: "for you"})
//	→ chat message "🌹 Rose: for you" of type gift
func (s *Service) Send(ctx context.Context, sender *db.User, req SendRequest) (*Sent, error) {
	gift, ok := findGift(req.GiftID)
	if !ok {
		return nil, svcErr.InvalidArgument("Invalid gift")
	}
	note := strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(note) > maxGiftMessage {
		return nil, svcErr.NewValidationError("message", "must be at most 500 characters")
	}
	m, err := s.guard.Active(ctx, req.MatchID, sender.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if gift.PremiumOnly && !sender.PremiumActive(now) {
		return nil, svcErr.NewForbiddenError("This gift requires Premium")
	}
	partner := m.Partner(sender.ID)

	content := gift.Emoji + " " + gift.Name
	vg := &db.VirtualGift{
		ID:          ids.New("gift"),
		MatchID:     m.ID,
		SenderID:    sender.ID,
		RecipientID: partner,
		GiftID:      gift.ID,
		CreatedAt:   now,
	}
	if note != "" {
		vg.Message = &note
		content += ": " + note
	}
	msg := &db.Message{
		ID:          ids.New("msg"),
		MatchID:     m.ID,
		SenderID:    sender.ID,
		MessageType: db.MessageGift,
		Content:     content,
		CreatedAt:   now,
	}
	if err := s.gifts.SendWithMessage(ctx, vg, msg); err != nil {
		return nil, err
	}
	if err := s.matches.RecordMessage(ctx, m.ID, content, now); err != nil {
		s.appCtx.Logger.Warn("match preview update failed", "match_id", m.ID, "err", err)
	}

	s.publish(ctx, partner, realtime.TypeNewMessage, map[string]any{"match_id": m.ID, "message": msg})
	s.publish(ctx, partner, realtime.TypeGiftReceived, map[string]any{
		"match_id":  m.ID,
		"gift":      gift,
		"sender_id": sender.ID,
		"message":   note,
	})
	if _, err := s.appCtx.Notifier.Notify(ctx, partner, notify.TypeGift,
		sender.Name+" sent you a gift", content, map[string]any{
			"match_id":  m.ID,
			"gift_id":   gift.ID,
			"sender_id": sender.ID,
		}); err != nil {
		s.appCtx.Logger.Error("gift notification failed", "user_id", partner, "err", err)
	}
	return &Sent{Gift: vg, Message: msg}, nil
}

// Received lists the newest gifts sent to userID.
func (s *Service) Received(ctx context.Context, userID string) ([]db.VirtualGift, error) {
	out, err := s.gifts.ListReceived(ctx, userID, receivedLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []db.VirtualGift{}
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, userID, typ string, fields map[string]any) {
	if err := s.appCtx.Bus.Publish(ctx, userID, realtime.NewEvent(typ, fields)); err != nil {
		s.appCtx.Logger.Warn("realtime publish failed", "type", typ, "user_id", userID, "err", err)
	}
}
