package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/ember/internal/db"
)

type PushRepository struct {
	db *gorm.DB
}

func NewPushRepository(database *gorm.DB) *PushRepository {
	return &PushRepository{db: database}
}

// Upsert registers an endpoint, moving it to userID if it was registered before.
func (r *PushRepository) Upsert(ctx context.Context, sub *db.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
		}).
		Create(sub).Error
}

func (r *PushRepository) ListForUser(ctx context.Context, userID string) ([]db.PushSubscription, error) {
	var subs []db.PushSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}

func (r *PushRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&db.PushSubscription{}).Error
}
