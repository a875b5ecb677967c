package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/llm"
	"github.com/oggyb/ember/internal/notify"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/participant"
	"github.com/oggyb/ember/internal/service/venues"
	"github.com/oggyb/ember/internal/utils/ids"
)

const (
	maxContentLength = 2000
	previewLength    = 100
)

var ErrMessageNotFound = svcErr.NewNotFoundError("Message")

// Completer is the LLM dependency used for conversation starters.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Service implements chat over matches.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
	blocks   *repository.BlockRepository
	guard    *participant.Guard
	venues   *venues.Service
	llm      Completer
	now      func() time.Time
}

type Option func(*Service)

func WithCompleter(c Completer) Option {
	return func(s *Service) { s.llm = c }
}

func WithVenues(v *venues.Service) Option {
	return func(s *Service) { s.venues = v }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewMessagingService creates the messaging service with dependencies from AppContext.
func NewMessagingService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		blocks:   repository.NewBlockRepository(appCtx.DB),
		guard:    participant.New(appCtx.DB),
		llm:      llm.New(appCtx.Config),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.venues == nil {
		s.venues = venues.NewVenueService(appCtx)
	}
	return s
}

func (s *Service) publish(ctx context.Context, userID, typ string, fields map[string]any) {
	if err := s.appCtx.Bus.Publish(ctx, userID, realtime.NewEvent(typ, fields)); err != nil {
		s.appCtx.Logger.Warn("realtime publish failed", "type", typ, "user_id", userID, "err", err)
	}
}

// Conversation returns the match's messages oldest first and marks the
// partner's messages read.
//
// Behavior:
//   - 404 for an unknown match, 403 for a non-participant.
//   - At most 500 messages.
//   - When something was marked read, messages_read goes to the partner.
func (s *Service) Conversation(ctx context.Context, userID, matchID string) ([]db.Message, error) {
	m, err := s.guard.Match(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListForMatch(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	n, err := s.messages.MarkRead(ctx, m.ID, userID, now)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		for i := range msgs {
			if msgs[i].SenderID != userID && !msgs[i].Read {
				msgs[i].Read = true
				msgs[i].ReadAt = &now
			}
		}
		s.publish(ctx, m.Partner(userID), realtime.TypeMessagesRead, map[string]any{
			"match_id":  m.ID,
			"reader_id": userID,
			"read_at":   now,
		})
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	return msgs, nil
}

type SendRequest struct {
	MatchID     string  `json:"match_id" binding:"required"`
	Content     string  `json:"content"`
	MessageType string  `json:"message_type"`
	MediaURL    *string `json:"media_url"`
}

func validateSend(req *SendRequest) error {
	if req.MessageType == "" {
		req.MessageType = db.MessageText
	}
	req.Content = strings.TrimSpace(req.Content)
	switch req.MessageType {
	case db.MessageText:
		if req.Content == "" {
			return svcErr.NewValidationError("content", "must not be empty")
		}
	case db.MessageGIF, db.MessageVoice, db.MessageImage:
		if req.MediaURL == nil || *req.MediaURL == "" {
			return svcErr.NewValidationError("media_url", "is required for "+req.MessageType+" messages")
		}
	default:
		return svcErr.NewValidationError("message_type", "must be text, gif, voice or image")
	}
	if utf8.RuneCountInString(req.Content) > maxContentLength {
		return svcErr.NewValidationError("content", "is too long")
	}
	return nil
}

// preview is the match list snippet for a message.
func preview(m *db.Message) string {
	switch m.MessageType {
	case db.MessageGIF:
		return "GIF"
	case db.MessageVoice:
		return "Voice message"
	case db.MessageImage:
		return "Photo"
	}
	if r := []rune(m.Content); len(r) > previewLength {
		return string(r[:previewLength]) + "…"
	}
	return m.Content
}

// Send posts a message into a match.
//
// Behavior:
//   - Caller must be a participant and the pair must not be blocked.
//   - Updates last_message, last_message_at and the first-message markers.
//   - Pushes new_message to the partner and writes a notification.
//
// Example:
//
//	msg, err := svc.Send(ctx, me, SendRequest{MatchID: "match_1", Content: "hi!"})
func (s *Service) Send(ctx context.Context, sender *db.User, req SendRequest) (*db.Message, error) {
	if err := validateSend(&req); err != nil {
		return nil, err
	}
	m, err := s.guard.Active(ctx, req.MatchID, sender.ID)
	if err != nil {
		return nil, err
	}
	msg := &db.Message{
		ID:          ids.New("msg"),
		MatchID:     m.ID,
		SenderID:    sender.ID,
		MessageType: req.MessageType,
		Content:     req.Content,
		MediaURL:    req.MediaURL,
		Reactions:   map[string]string{},
		CreatedAt:   s.now(),
	}
	if err := s.deliver(ctx, m, sender, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// deliver stores msg and fans it out to the partner.
func (s *Service) deliver(ctx context.Context, m *db.Match, sender *db.User, msg *db.Message) error {
	if err := s.messages.Create(ctx, msg); err != nil {
		return err
	}
	if err := s.matches.RecordMessage(ctx, m.ID, preview(msg), msg.CreatedAt); err != nil {
		return err
	}

	partner := m.Partner(sender.ID)
	s.publish(ctx, partner, realtime.TypeNewMessage, map[string]any{
		"match_id": m.ID,
		"message":  msg,
	})
	if _, err := s.appCtx.Notifier.Notify(ctx, partner, notify.TypeNewMessage, sender.Name, preview(msg), map[string]any{
		"match_id":   m.ID,
		"message_id": msg.ID,
		"sender_id":  sender.ID,
	}); err != nil {
		s.appCtx.Logger.Error("message notification failed", "user_id", partner, "err", err)
	}
	return nil
}

// ownMessage loads a message the caller sent and is still allowed to change.
func (s *Service) ownMessage(ctx context.Context, userID, messageID string, window time.Duration, verb, past string) (*db.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, svcErr.NewForbiddenError("You can only " + verb + " your own messages")
	}
	if msg.Deleted {
		return nil, svcErr.InvalidArgument("Message was deleted")
	}
	if s.now().Sub(msg.CreatedAt) > window {
		return nil, svcErr.InvalidArgument(fmt.Sprintf("Messages can only be %s within %d minutes", past, int(window.Minutes())))
	}
	return msg, nil
}

// Edit replaces the content of the caller's own text message within the edit window.
func (s *Service) Edit(ctx context.Context, userID, messageID, content string) (*db.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, svcErr.NewValidationError("content", "must not be empty")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, svcErr.NewValidationError("content", "is too long")
	}

	msg, err := s.ownMessage(ctx, userID, messageID, s.appCtx.Config.Limits.MessageEditWindow, "edit", "edited")
	if err != nil {
		return nil, err
	}
	if msg.MessageType != db.MessageText {
		return nil, svcErr.InvalidArgument("Only text messages can be edited")
	}
	m, err := s.guard.Match(ctx, msg.MatchID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.messages.Edit(ctx, msg.ID, content, now); err != nil {
		return nil, err
	}
	msg.Content, msg.EditedAt = content, &now

	s.publish(ctx, m.Partner(userID), realtime.TypeMessageEdited, map[string]any{
		"match_id": m.ID,
		"message":  msg,
	})
	return msg, nil
}

// Delete soft-deletes the caller's own message within the delete window.
func (s *Service) Delete(ctx context.Context, userID, messageID string) error {
	msg, err := s.ownMessage(ctx, userID, messageID, s.appCtx.Config.Limits.MessageDeleteWindow, "delete", "deleted")
	if err != nil {
		return err
	}
	m, err := s.guard.Match(ctx, msg.MatchID, userID)
	if err != nil {
		return err
	}
	if err := s.messages.SoftDelete(ctx, msg.ID); err != nil {
		return err
	}

	s.publish(ctx, m.Partner(userID), realtime.TypeMessageDeleted, map[string]any{
		"match_id":   m.ID,
		"message_id": msg.ID,
	})
	return nil
}

// React sets the caller's reaction on a message. An empty emoji removes it.
func (s *Service) React(ctx context.Context, userID, messageID, emoji string) (*db.Message, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, err
	}
	m, err := s.guard.Match(ctx, msg.MatchID, userID)
	if err != nil {
		return nil, err
	}

	if msg.Reactions == nil {
		msg.Reactions = map[string]string{}
	}
	if emoji = strings.TrimSpace(emoji); emoji == "" {
		delete(msg.Reactions, userID)
	} else {
		msg.Reactions[userID] = emoji
	}
	if err := s.messages.SaveReactions(ctx, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, m.Partner(userID), realtime.TypeReaction, map[string]any{
		"match_id":   m.ID,
		"message_id": msg.ID,
		"user_id":    userID,
		"emoji":      emoji,
	})
	return msg, nil
}

// Matches lists the caller's matches with the partner profile attached,
// most recent conversation first.
func (s *Service) Matches(ctx context.Context, userID string) ([]db.Match, error) {
	list, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	partnerIDs := make([]string, len(list))
	for i := range list {
		partnerIDs[i] = list[i].Partner(userID)
	}
	byID, err := s.users.FindByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].OtherUser = byID[partnerIDs[i]]
	}
	if list == nil {
		list = []db.Match{}
	}
	return list, nil
}

// Unmatch deletes the match and its messages.
func (s *Service) Unmatch(ctx context.Context, userID, matchID string) error {
	m, err := s.guard.Match(ctx, matchID, userID)
	if err != nil {
		return err
	}
	return s.matches.Delete(ctx, m.ID)
}
