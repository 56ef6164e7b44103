package repository

import (
	"context"
	"time"

	"github.com/oggyb/tembichat/internal/db"
	"github.com/oggyb/tembichat/internal/utils/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notDislikedBack excludes likers the target has already disliked.
const notDislikedBack = `
	NOT EXISTS (
		SELECT 1 FROM swipes s2
		WHERE s2.actor_id = ?
		  AND s2.target_id = s.actor_id
		  AND s2.direction = 'dislike'
	)`

// GormSwipeRepository provides data access methods for the Swipe model.
// It encapsulates all queries related to likes/dislikes between users.
type GormSwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *GormSwipeRepository {
	return &GormSwipeRepository{db: database}
}

// Create appends a swipe made by actor -> target.
//
// Behavior:
//   - If the (actor_id, target_id) pair already exists → nothing is written
//     and created is false (idempotent no-op, the first decision stands).
//   - Otherwise the row is inserted and created is true.
//
// Example:
//
//	repo.Create(ctx, &db.Swipe{ActorID: "a", TargetID: "b", Direction: db.DirectionLike})
func (r *GormSwipeRepository) Create(ctx context.Context, s *db.Swipe) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormSwipeRepository) Get(ctx context.Context, actorID, targetID string) (*db.Swipe, error) {
	var s db.Swipe
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// HasLiked checks whether an actor has liked a target.
//
// Behavior:
//   - Returns true if there exists a swipe row where actor_id = X,
//     target_id = Y, and direction = like.
//   - Used for the reciprocal-like check in RecordSwipe.
func (r *GormSwipeRepository) HasLiked(ctx context.Context, actorID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ? AND target_id = ? AND direction = ?", actorID, targetID, db.DirectionLike).
		Count(&count).Error
	return count > 0, err
}

// GetLikers returns swipes of users who liked the given target.
//
// Behavior:
//   - Only swipes where target_id = X and direction = like are returned.
//   - Excludes users that the target explicitly disliked.
//   - Ordered by created_at DESC, actor_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, "42", nil, 20) // first 20 people who liked user 42
func (r *GormSwipeRepository) GetLikers(
	ctx context.Context,
	targetID string,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	var swipes []db.Swipe

	// decode cursor if provided
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.target_id = ? AND s.direction = ?", targetID, db.DirectionLike).
		Where(notDislikedBack, targetID).
		Order("s.created_at DESC, s.actor_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(s.created_at < ? OR (s.created_at = ? AND s.actor_id < ?))",
			ts, ts, cursor.ActorID,
		)
	}

	if err := query.Find(&swipes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(swipes) > limit {
		last := swipes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ActorID:     last.ActorID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		swipes = swipes[:limit]
	}

	return swipes, nextToken, nil
}

// CountLikers returns how many users liked the given target.
//
// Behavior:
//   - Counts only swipes where target_id = X and direction = like.
//   - Excludes users that the target explicitly disliked.
//   - Used in conjunction with Redis cache (DB is fallback).
func (r *GormSwipeRepository) CountLikers(ctx context.Context, targetID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.target_id = ? AND s.direction = ?", targetID, db.DirectionLike).
		Where(notDislikedBack, targetID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
