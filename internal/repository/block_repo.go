package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Block creates the edge and tears down any match between the pair in one
// transaction. A duplicate edge surfaces as gorm.ErrDuplicatedKey.
func (r *BlockRepository) Block(ctx context.Context, blockerID, blockedID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&db.Block{BlockerID: blockerID, BlockedID: blockedID}).Error; err != nil {
			return err
		}
		return deleteBetween(tx, blockerID, blockedID)
	})
}

// Unblock removes the edge. Returns false if it did not exist.
func (r *BlockRepository) Unblock(ctx context.Context, blockerID, blockedID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&db.Block{})
	return res.RowsAffected > 0, res.Error
}

// IsBlockedEither reports a block in either direction.
func (r *BlockRepository) IsBlockedEither(ctx context.Context, a, b string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}

// BlockedIDs returns users blockerID blocked.
func (r *BlockRepository) BlockedIDs(ctx context.Context, blockerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&db.Block{}).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Pluck("blocked_id", &ids).Error
	return ids, err
}

// BlockerIDs returns users who blocked userID.
func (r *BlockRepository) BlockerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&db.Block{}).
		Where("blocked_id = ?", userID).
		Pluck("blocker_id", &ids).Error
	return ids, err
}

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

func (r *ReportRepository) Create(ctx context.Context, rep *db.Report) error {
	return r.db.WithContext(ctx).Create(rep).Error
}
