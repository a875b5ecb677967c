package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

// Counter names one of the three daily quota counters on users.
type Counter struct {
	Kind  string
	count string
	reset string
	extra string
}

var (
	SwipeCounter     = Counter{Kind: "swipe", count: "swipe_count", reset: "swipe_reset_at"}
	SuperLikeCounter = Counter{Kind: "super_like", count: "super_like_count", reset: "super_like_reset_at", extra: "extra_super_likes"}
	RoseCounter      = Counter{Kind: "rose", count: "rose_count", reset: "rose_reset_at", extra: "extra_roses"}
)

// HasExtras reports whether purchased extras can stand in for this counter.
func (c Counter) HasExtras() bool { return c.extra != "" }

// QuotaWindow is the lazy reset period of every counter.
const QuotaWindow = 24 * time.Hour

// UserRepository provides data access for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByIDs returns the users keyed by id. Missing ids are absent from the map.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*db.User, error) {
	out := make(map[string]*db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// UpdateColumns writes only the named columns of u.
func (r *UserRepository) UpdateColumns(ctx context.Context, u *db.User, columns ...string) error {
	return r.db.WithContext(ctx).Model(u).Select(columns).Updates(u).Error
}

// Touch bumps last_active.
func (r *UserRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).
		UpdateColumn("last_active", at).Error
}

// DiscoverQuery narrows the discovery base query.
type DiscoverQuery struct {
	Exclude []string
	// Gender restricts candidates when set.
	Gender string
	Limit  int
}

// ListDiscoverable returns discoverable users outside the exclusion set.
//
// Behavior:
//   - Only rows with is_profile_complete = true and verification_status = verified.
//   - Ordered by last_active DESC, id ASC so results are stable between calls.
//   - Limit caps the scan; advanced filters are applied by the caller.
func (r *UserRepository) ListDiscoverable(ctx context.Context, q DiscoverQuery) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Where("is_profile_complete = ? AND verification_status = ?", true, db.VerificationVerified)
	if len(q.Exclude) > 0 {
		query = query.Where("id NOT IN ?", q.Exclude)
	}
	if q.Gender != "" {
		query = query.Where("gender = ?", q.Gender)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var users []db.User
	err := query.Order("last_active DESC, id ASC").Find(&users).Error
	return users, err
}

// ConsumeDaily atomically checks and increments a daily counter.
//
// Behavior:
//   - If the counter's reset timestamp is unset or at least 24h old, the
//     counter restarts at 1 and the reset timestamp becomes now.
//   - Otherwise the counter is incremented only while it is below max.
//   - Returns false when the quota is exhausted; nothing is written then.
//
// The count column is assigned first: MySQL evaluates SET left to right, so
// the reset CASE must still see the old reset timestamp.
func (r *UserRepository) ConsumeDaily(ctx context.Context, userID string, c Counter, max int, now time.Time) (bool, error) {
	now = now.UTC().Truncate(time.Millisecond)
	cutoff := now.Add(-QuotaWindow)

	stmt := fmt.Sprintf(`UPDATE users SET
		%[1]s = CASE WHEN %[2]s IS NULL OR %[2]s <= ? THEN 1 ELSE %[1]s + 1 END,
		%[2]s = CASE WHEN %[2]s IS NULL OR %[2]s <= ? THEN ? ELSE %[2]s END
		WHERE id = ? AND (%[2]s IS NULL OR %[2]s <= ? OR %[1]s < ?)`, c.count, c.reset)

	res := r.db.WithContext(ctx).Exec(stmt, cutoff, cutoff, now, userID, cutoff, max)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ConsumeExtra spends one purchased extra for the counter, if any are left.
func (r *UserRepository) ConsumeExtra(ctx context.Context, userID string, c Counter) (bool, error) {
	if !c.HasExtras() {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ? AND "+c.extra+" > 0", userID).
		UpdateColumn(c.extra, gorm.Expr(c.extra+" - 1"))
	return res.RowsAffected == 1, res.Error
}

// Refund gives back one unit taken by ConsumeDaily.
func (r *UserRepository) Refund(ctx context.Context, userID string, c Counter) error {
	return r.db.WithContext(ctx).Model(&db.User{}).
		Where("id = ? AND "+c.count+" > 0", userID).
		UpdateColumn(c.count, gorm.Expr(c.count+" - 1")).Error
}

// RefundExtra gives back one unit taken by ConsumeExtra.
func (r *UserRepository) RefundExtra(ctx context.Context, userID string, c Counter) error {
	if !c.HasExtras() {
		return nil
	}
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", userID).
		UpdateColumn(c.extra, gorm.Expr(c.extra+" + 1")).Error
}

// Remaining computes units left on a counter from a loaded row.
func Remaining(u *db.User, c Counter, max int, now time.Time) int {
	var count int
	var reset *time.Time
	switch c.Kind {
	case SwipeCounter.Kind:
		count, reset = u.SwipeCount, u.SwipeResetAt
	case SuperLikeCounter.Kind:
		count, reset = u.SuperLikeCount, u.SuperLikeResetAt
	case RoseCounter.Kind:
		count, reset = u.RoseCount, u.RoseResetAt
	}
	if reset == nil || !reset.After(now.Add(-QuotaWindow)) {
		return max
	}
	if left := max - count; left > 0 {
		return left
	}
	return 0
}

// GrantPremium activates plan until expiresAt.
func (r *UserRepository) GrantPremium(ctx context.Context, userID, plan string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"is_premium":         true,
			"premium_plan":       plan,
			"premium_expires_at": expiresAt,
		}).Error
}

// AddExtras credits purchased super likes and roses.
func (r *UserRepository) AddExtras(ctx context.Context, userID string, superLikes, roses int) error {
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", userID).
		UpdateColumns(map[string]any{
			"extra_super_likes": gorm.Expr("extra_super_likes + ?", superLikes),
			"extra_roses":       gorm.Expr("extra_roses + ?", roses),
		}).Error
}
