package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(database *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: database}
}

func (r *TransactionRepository) Create(ctx context.Context, t *db.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepository) FindBySessionID(ctx context.Context, sessionID string) (*db.Transaction, error) {
	var t db.Transaction
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, sessionID, status, paymentStatus string) error {
	return r.db.WithContext(ctx).Model(&db.Transaction{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"status": status, "payment_status": paymentStatus}).Error
}

// ClaimFulfilment flips fulfilled from false to true. Exactly one caller per
// session ever gets true.
func (r *TransactionRepository) ClaimFulfilment(ctx context.Context, sessionID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db.Transaction{}).
		Where("session_id = ? AND fulfilled = ?", sessionID, false).
		Update("fulfilled", true)
	return res.RowsAffected == 1, res.Error
}

// ReleaseFulfilment undoes a claim whose grant failed.
func (r *TransactionRepository) ReleaseFulfilment(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Model(&db.Transaction{}).
		Where("session_id = ?", sessionID).
		Update("fulfilled", false).Error
}
