package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(database *gorm.DB) *CallRepository {
	return &CallRepository{db: database}
}

func (r *CallRepository) Create(ctx context.Context, c *db.Call) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CallRepository) FindByID(ctx context.Context, id string) (*db.Call, error) {
	var c db.Call
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Transition moves the call to a new status only from one of the given
// states. Returns false when the call was in another state.
func (r *CallRepository) Transition(ctx context.Context, id string, from []string, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.Call{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}
