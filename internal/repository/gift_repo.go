package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

type GiftRepository struct {
	db *gorm.DB
}

func NewGiftRepository(database *gorm.DB) *GiftRepository {
	return &GiftRepository{db: database}
}

// SendWithMessage stores the gift and its chat message together.
func (r *GiftRepository) SendWithMessage(ctx context.Context, g *db.VirtualGift, m *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		return tx.Create(m).Error
	})
}

// ListReceived returns gifts received by userID, newest first.
func (r *GiftRepository) ListReceived(ctx context.Context, userID string, limit int) ([]db.VirtualGift, error) {
	var gifts []db.VirtualGift
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&gifts).Error
	return gifts, err
}
