package icebreakers

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/participant"
	"github.com/oggyb/ember/internal/utils/ids"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"

	questionsPerGame = 5
	maxAnswerLen     = 200
	saveAttempts     = 3
)

var (
	errSessionNotFound = svcErr.NewNotFoundError("Game session")
	errAlreadyAnswered = svcErr.InvalidArgument("You already answered this question")
	errGameCompleted   = svcErr.InvalidArgument("This game is already completed")
)

// Service runs two-player icebreaker sessions inside a match.
type Service struct {
	appCtx   *app.AppContext
	sessions *repository.IcebreakerRepository
	guard    *participant.Guard
	shuffle  func(n int, swap func(i, j int))
}

type Option func(*Service)

// WithShuffle replaces the random question order.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Service) { s.shuffle = fn }
}

func NewIcebreakerService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx:   appCtx,
		sessions: repository.NewIcebreakerRepository(appCtx.DB),
		guard:    participant.New(appCtx.DB),
		shuffle:  rand.Shuffle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Games() []Game { return games }

type StartRequest struct {
	MatchID  string `json:"match_id" binding:"required"`
	GameType string `json:"game_type" binding:"required"`
}

// Start opens a new session with a random selection of questions.
func (s *Service) Start(ctx context.Context, userID string, req StartRequest) (*db.IcebreakerSession, error) {
	game, ok := findGame(req.GameType)
	if !ok {
		return nil, svcErr.InvalidArgument("Invalid game type")
	}
	m, err := s.guard.Active(ctx, req.MatchID, userID)
	if err != nil {
		return nil, err
	}

	pool := append([]any(nil), game.questions...)
	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > questionsPerGame {
		pool = pool[:questionsPerGame]
	}

	session := &db.IcebreakerSession{
		ID:        ids.New("ice"),
		MatchID:   m.ID,
		GameType:  game.ID,
		StartedBy: userID,
		Questions: pool,
		Answers:   map[int]map[string]string{},
		Status:    StatusActive,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns a session to either participant of its match.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*db.IcebreakerSession, error) {
	session, _, err := s.load(ctx, userID, sessionID)
	return session, err
}

func (s *Service) load(ctx context.Context, userID, sessionID string) (*db.IcebreakerSession, *db.Match, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errSessionNotFound
	} else if err != nil {
		return nil, nil, err
	}
	m, err := s.guard.Match(ctx, session.MatchID, userID)
	if err != nil {
		return nil, nil, err
	}
	if session.Answers == nil {
		session.Answers = map[int]map[string]string{}
	}
	return session, m, nil
}

type AnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// Answer records the caller's answer to the current question.
//
// Behavior:
//   - Each participant answers each question once.
//   - Once both have answered, the session moves to the next question.
//   - After the last question the session is completed.
//   - Concurrent answers are serialized by the session's updated_at.
//
// Example:
//
//	q0: alice answers → waiting; bob answers → current_question 1
func (s *Service) Answer(ctx context.Context, userID, sessionID string, req AnswerRequest) (*db.IcebreakerSession, error) {
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return nil, svcErr.NewValidationError("answer", "is required")
	}
	if len(answer) > maxAnswerLen {
		return nil, svcErr.NewValidationError("answer", "is too long")
	}

	for attempt := 0; attempt < saveAttempts; attempt++ {
		session, m, err := s.load(ctx, userID, sessionID)
		if err != nil {
			return nil, err
		}
		if session.Status != StatusActive {
			return nil, errGameCompleted
		}
		idx := session.CurrentQuestion
		current := session.Answers[idx]
		if _, done := current[userID]; done {
			return nil, errAlreadyAnswered
		}
		if current == nil {
			current = map[string]string{}
			session.Answers[idx] = current
		}
		current[userID] = answer

		both := len(current) >= 2
		if both {
			session.CurrentQuestion++
			if session.CurrentQuestion >= len(session.Questions) {
				session.Status = StatusCompleted
			}
		}

		saved, err := s.sessions.SaveIfUnchanged(ctx, session, session.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if !saved {
			continue
		}

		s.publish(ctx, m.Partner(userID), map[string]any{
			"session_id":     session.ID,
			"match_id":       session.MatchID,
			"user_id":        userID,
			"question_index": idx,
			"both_answered":  both,
			"status":         session.Status,
		})
		return session, nil
	}
	return nil, svcErr.NewConflictError("Game was updated, please retry")
}

func (s *Service) publish(ctx context.Context, userID string, fields map[string]any) {
	if err := s.appCtx.Bus.Publish(ctx, userID, realtime.NewEvent(realtime.TypeIcebreakerAnswer, fields)); err != nil {
		s.appCtx.Logger.Warn("realtime publish failed", "type", realtime.TypeIcebreakerAnswer, "user_id", userID, "err", err)
	}
}
