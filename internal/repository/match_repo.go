package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/utils/ids"
)

// MatchRepository stores matches as ordered pairs (user1_id < user2_id).
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIgnore inserts the match for (a, b) unless one exists, then re-reads it.
//
// Behavior:
//   - The pair is normalized with ids.OrderedPair before insert.
//   - Insert-or-ignore on idx_match_pair; created reports whether this call won.
//   - The returned row is always the stored one, so concurrent callers agree.
func (r *MatchRepository) CreateIgnore(ctx context.Context, a, b string, now time.Time) (*db.Match, bool, error) {
	u1, u2 := ids.OrderedPair(a, b)
	m := &db.Match{
		ID:        ids.New("match"),
		User1ID:   u1,
		User2ID:   u2,
		MatchedAt: now.UTC(),
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return nil, false, res.Error
	}

	stored, err := r.FindByPair(ctx, u1, u2)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected == 1, nil
}

func (r *MatchRepository) FindByID(ctx context.Context, id string) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByPair looks up the match for an unordered pair.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b string) (*db.Match, error) {
	u1, u2 := ids.OrderedPair(a, b)
	var m db.Match
	if err := r.db.WithContext(ctx).Where("user1_id = ? AND user2_id = ?", u1, u2).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountForPair is used by tests and invariant checks.
func (r *MatchRepository) CountForPair(ctx context.Context, a, b string) (int64, error) {
	u1, u2 := ids.OrderedPair(a, b)
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Match{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).Count(&n).Error
	return n, err
}

// ListForUser returns the user's matches, most recent conversation first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("COALESCE(last_message_at, matched_at) DESC, id ASC").
		Find(&matches).Error
	return matches, err
}

// PartnerIDs returns the other member of every match of userID.
func (r *MatchRepository) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
	matches, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for i := range matches {
		out = append(out, matches[i].Partner(userID))
	}
	return out, nil
}

// RecordMessage updates the conversation preview and first-message markers.
func (r *MatchRepository) RecordMessage(ctx context.Context, matchID, preview string, at time.Time) error {
	at = at.UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Match{}).Where("id = ?", matchID).
			Updates(map[string]any{
				"last_message":       preview,
				"last_message_at":    at,
				"first_message_sent": true,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&db.Match{}).
			Where("id = ? AND first_message_at IS NULL", matchID).
			Update("first_message_at", at).Error
	})
}

// Delete removes a match and its messages.
func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("match_id = ?", id).Delete(&db.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&db.Match{}).Error
	})
}

// deleteBetween removes the pair's match and its messages inside tx.
func deleteBetween(tx *gorm.DB, a, b string) error {
	u1, u2 := ids.OrderedPair(a, b)
	var matchIDs []string
	if err := tx.Model(&db.Match{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Pluck("id", &matchIDs).Error; err != nil {
		return err
	}
	if len(matchIDs) == 0 {
		return nil
	}
	if err := tx.Where("match_id IN ?", matchIDs).Delete(&db.Message{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", matchIDs).Delete(&db.Match{}).Error
}

// ListSilentSince returns matches without a first message matched at or before cutoff.
func (r *MatchRepository) ListSilentSince(ctx context.Context, cutoff time.Time) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("first_message_sent = ? AND matched_at <= ?", false, cutoff.UTC()).
		Order("matched_at ASC").
		Find(&matches).Error
	return matches, err
}

// MarkWarned flags a silent match as warned. Returns false if it was already
// warned or a message arrived meanwhile.
func (r *MatchRepository) MarkWarned(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.Match{}).
		Where("id = ? AND warning_sent = ? AND first_message_sent = ?", id, false, false).
		Updates(map[string]any{"warning_sent": true, "warning_sent_at": at.UTC()})
	return res.RowsAffected == 1, res.Error
}

// DeleteIfSilent removes the match only if it still has no first message.
func (r *MatchRepository) DeleteIfSilent(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND first_message_sent = ?", id, false).
		Delete(&db.Match{})
	return res.RowsAffected == 1, res.Error
}
