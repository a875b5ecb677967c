package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
)

// MaxConversationMessages caps one conversation fetch.
const MaxConversationMessages = 500

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

func (r *MessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*db.Message, error) {
	var m db.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForMatch returns the conversation oldest first.
func (r *MessageRepository) ListForMatch(ctx context.Context, matchID string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Limit(MaxConversationMessages).
		Find(&msgs).Error
	return msgs, err
}

// MarkRead marks every unread message in the match not sent by readerID.
func (r *MessageRepository) MarkRead(ctx context.Context, matchID, readerID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = ?", matchID, readerID, false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC()})
	return res.RowsAffected, res.Error
}

// Edit replaces the content and stamps edited_at.
func (r *MessageRepository) Edit(ctx context.Context, id, content string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&db.Message{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "edited_at": at.UTC()}).Error
}

// SoftDelete blanks the content and flags the row.
func (r *MessageRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&db.Message{}).Where("id = ?", id).
		Updates(map[string]any{"deleted": true, "content": "", "media_url": nil}).Error
}

// SaveReactions persists the reactions map of m.
func (r *MessageRepository) SaveReactions(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Model(m).Select("reactions").Updates(m).Error
}
