package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(database *gorm.DB) *SessionRepository {
	return &SessionRepository{db: database}
}

func (r *SessionRepository) Create(ctx context.Context, s *db.UserSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// FindValid returns the session if it exists and has not expired at now.
func (r *SessionRepository) FindValid(ctx context.Context, token string, now time.Time) (*db.UserSession, error) {
	var s db.UserSession
	err := r.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now.UTC()).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&db.UserSession{}).Error
}

// DeleteExpired purges sessions that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&db.UserSession{})
	return res.RowsAffected, res.Error
}
