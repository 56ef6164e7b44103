package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/tembichat/internal/db"
)

// GormMatchRepository stores matches as normalized (UserA < UserB) pairs.
type GormMatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *GormMatchRepository {
	return &GormMatchRepository{db: database}
}

// CreateIfAbsent inserts a match for the unordered pair {userA, userB}.
//
// Behavior:
//   - The pair is normalized first, so (a,b) and (b,a) are the same match.
//   - If the pair already has a match → the existing row is returned and
//     created is false.
//   - Otherwise a new row is inserted with matchedAt and created is true.
func (r *GormMatchRepository) CreateIfAbsent(ctx context.Context, userA, userB string, matchedAt time.Time) (*db.Match, bool, error) {
	a, b := db.OrderedPair(userA, userB)
	m := &db.Match{ID: uuid.NewString(), UserA: a, UserB: b, MatchedAt: matchedAt}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a"}, {Name: "user_b"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return m, true, nil
	}

	var existing db.Match
	if err := r.db.WithContext(ctx).Where("user_a = ? AND user_b = ?", a, b).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// Exists reports whether the unordered pair is matched.
func (r *GormMatchRepository) Exists(ctx context.Context, userA, userB string) (bool, error) {
	a, b := db.OrderedPair(userA, userB)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user_a = ? AND user_b = ?", a, b).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns every match touching userID, oldest first.
func (r *GormMatchRepository) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("matched_at ASC, id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *GormMatchRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Count(&count).Error
	return count, err
}
