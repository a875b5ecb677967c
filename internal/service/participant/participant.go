// Package participant resolves a match for a caller and enforces membership.
package participant

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
)

var ErrMatchNotFound = svcErr.NewNotFoundError("Match")

type Guard struct {
	matches *repository.MatchRepository
	blocks  *repository.BlockRepository
}

func New(database *gorm.DB) *Guard {
	return &Guard{
		matches: repository.NewMatchRepository(database),
		blocks:  repository.NewBlockRepository(database),
	}
}

// Match loads matchID and checks userID is a member: 404 if missing, 403 otherwise.
func (g *Guard) Match(ctx context.Context, matchID, userID string) (*db.Match, error) {
	m, err := g.matches.FindByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMatchNotFound
	} else if err != nil {
		return nil, err
	}
	if !m.Has(userID) {
		return nil, svcErr.ErrNotParticipant
	}
	return m, nil
}

// Active is Match plus a block check between the two members.
func (g *Guard) Active(ctx context.Context, matchID, userID string) (*db.Match, error) {
	m, err := g.Match(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	blocked, err := g.blocks.IsBlockedEither(ctx, m.User1ID, m.User2ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, svcErr.ErrBlocked
	}
	return m, nil
}
