package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/ember/internal/db"
)

type DailyPickRepository struct {
	db *gorm.DB
}

func NewDailyPickRepository(database *gorm.DB) *DailyPickRepository {
	return &DailyPickRepository{db: database}
}

// Get returns the picks for (userID, date) or gorm.ErrRecordNotFound.
func (r *DailyPickRepository) Get(ctx context.Context, userID, date string) (*db.DailyPick, error) {
	var p db.DailyPick
	if err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateIgnore stores the picks unless another request already did, then
// returns whichever row won.
func (r *DailyPickRepository) CreateIgnore(ctx context.Context, p *db.DailyPick) (*db.DailyPick, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, p.UserID, p.Date)
}
