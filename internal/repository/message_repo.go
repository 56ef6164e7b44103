package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/db"
)

// pairClause selects both directions of a conversation.
const pairClause = "(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)"

// GormMessageRepository provides data access for chat messages.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: database}
}

func (r *GormMessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// Conversation returns all messages exchanged between the two users,
// oldest first. Message ids are time-ordered, so ties on timestamp keep
// insertion order.
func (r *GormMessageRepository) Conversation(ctx context.Context, userA, userB string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where(pairClause, userA, userB, userB, userA).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead flags every unread message peer -> reader as read and returns
// how many rows changed.
func (r *GormMessageRepository) MarkRead(ctx context.Context, readerID, peerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", peerID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// LastMessage returns the newest message of the conversation, or nil when
// the two users never exchanged one.
func (r *GormMessageRepository) LastMessage(ctx context.Context, userA, userB string) (*db.Message, error) {
	var m db.Message
	err := r.db.WithContext(ctx).
		Where(pairClause, userA, userB, userB, userA).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UnreadCount counts messages from peer that reader has not read yet.
func (r *GormMessageRepository) UnreadCount(ctx context.Context, readerID, peerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", peerID, readerID, false).
		Count(&count).Error
	return count, err
}
