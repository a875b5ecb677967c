package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

type IcebreakerRepository struct {
	db *gorm.DB
}

func NewIcebreakerRepository(database *gorm.DB) *IcebreakerRepository {
	return &IcebreakerRepository{db: database}
}

func (r *IcebreakerRepository) Create(ctx context.Context, s *db.IcebreakerSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *IcebreakerRepository) FindByID(ctx context.Context, id string) (*db.IcebreakerSession, error) {
	var s db.IcebreakerSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveIfUnchanged writes the session's progress only if nobody else wrote it
// since it was read at prevUpdatedAt. Returns false on a lost race.
func (r *IcebreakerRepository) SaveIfUnchanged(ctx context.Context, s *db.IcebreakerSession, prevUpdatedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(s).
		Where("updated_at = ?", prevUpdatedAt).
		Select("answers", "current_question", "status", "updated_at").
		Updates(s)
	return res.RowsAffected == 1, res.Error
}
