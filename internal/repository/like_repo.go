package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model.
// It encapsulates all queries related to directed likes between users.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Create inserts a like unless the (liker, liked) pair already exists.
//
// Behavior:
//   - Insert-or-ignore on idx_like_pair, so concurrent duplicates never error.
//   - Returns created = false when the pair was already present.
//
// Example:
//
//	created, err := repo.Create(ctx, &db.Like{ID: "like_1", LikerID: "user_a", LikedUserID: "user_b"})
func (r *LikeRepository) Create(ctx context.Context, like *db.Like) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "liked_user_id"}},
			DoNothing: true,
		}).
		Create(like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// HasLiked checks whether liker has liked liked.
//
// Used for the reverse-edge lookup once the caller's own like has committed.
func (r *LikeRepository) HasLiked(ctx context.Context, likerID, likedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("liker_id = ? AND liked_user_id = ?", likerID, likedID).
		Count(&count).Error
	return count > 0, err
}

func (r *LikeRepository) FindByID(ctx context.Context, id string) (*db.Like, error) {
	var l db.Like
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteReceived removes a like addressed to recipientID. Returns false if absent.
func (r *LikeRepository) DeleteReceived(ctx context.Context, id, recipientID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND liked_user_id = ?", id, recipientID).
		Delete(&db.Like{})
	return res.RowsAffected > 0, res.Error
}

// LikedIDs returns every user likerID has liked.
func (r *LikeRepository) LikedIDs(ctx context.Context, likerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("liker_id = ?", likerID).
		Pluck("liked_user_id", &ids).Error
	return ids, err
}

// receivedScope selects likes addressed to recipientID, minus users the
// recipient blocked and users already matched with them.
func (r *LikeRepository) receivedScope(ctx context.Context, recipientID, likeType string) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liked_user_id = ?", recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM blocks b
				WHERE b.blocker_id = ? AND b.blocked_id = l.liker_id
			)`, recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE (m.user1_id = l.liker_id AND m.user2_id = l.liked_user_id)
				   OR (m.user2_id = l.liker_id AND m.user1_id = l.liked_user_id)
			)`)
	if likeType != "" {
		q = q.Where("l.like_type = ?", likeType)
	}
	return q
}

// ListReceived returns likes received by recipientID, newest first.
//
// Behavior:
//   - Optional likeType narrows to one like type (e.g. rose).
//   - Excludes likers the recipient blocked and pairs that already matched.
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListReceived(ctx, "user_42", "", nil, 20) // first 20 people who liked user_42
func (r *LikeRepository) ListReceived(
	ctx context.Context,
	recipientID, likeType string,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.receivedScope(ctx, recipientID, likeType).
		Select("l.*").
		Order("l.created_at DESC, l.id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var likes []db.Like
	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountReceived counts likes received under the same exclusions as ListReceived.
// Used in conjunction with the Redis cache (DB is the fallback).
func (r *LikeRepository) CountReceived(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.receivedScope(ctx, recipientID, "").Count(&count).Error
	return count, err
}

// CountReceivedSince returns likes received per user since the given time.
func (r *LikeRepository) CountReceivedSince(ctx context.Context, userIDs []string, since time.Time) (map[string]int64, error) {
	out := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		LikedUserID string
		N           int64
	}
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Select("liked_user_id, COUNT(*) AS n").
		Where("liked_user_id IN ? AND created_at >= ?", userIDs, since.UTC()).
		Group("liked_user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LikedUserID] = row.N
	}
	return out, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
