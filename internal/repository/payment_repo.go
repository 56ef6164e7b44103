package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/db"
)

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(database *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: database}
}

func (r *GormPaymentRepository) Create(ctx context.Context, p *db.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetForUser resolves a payment only if userID owns it; a payment owned by
// someone else is indistinguishable from a missing one.
func (r *GormPaymentRepository) GetForUser(ctx context.Context, id, userID string) (*db.Payment, error) {
	var p db.Payment
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPaymentRepository) Save(ctx context.Context, p *db.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ListForUser returns the user's payments, newest first.
func (r *GormPaymentRepository) ListForUser(ctx context.Context, userID string) ([]db.Payment, error) {
	var payments []db.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
