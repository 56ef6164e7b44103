package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/db"
)

// GormUserRepository provides data access methods for the User model.
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: database}
}

// Create inserts a new user. A duplicate email surfaces as gorm.ErrDuplicatedKey.
func (r *GormUserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail looks the address up case-insensitively; emails are stored lowercased.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetMany returns the users that exist among ids, in no particular order.
func (r *GormUserRepository) GetMany(ctx context.Context, ids []string) ([]db.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []db.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// profileColumns are the columns a profile edit may change.
var profileColumns = []string{
	"name", "age", "gender", "bio", "location",
	"photos", "videos", "gifs", "hobbies", "first_impression", "background_image",
	"pref_age_min", "pref_age_max", "pref_gender", "pref_distance",
	"setting_show_online_status", "setting_enable_read_receipts", "setting_chat_notifications",
	"setting_dark_mode", "setting_language", "setting_privacy",
}

func (r *GormUserRepository) UpdateProfile(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", u.ID).
		Select(profileColumns).
		Updates(u).Error
}

// Touch records activity and slides the idle-session window.
func (r *GormUserRepository) Touch(ctx context.Context, id string, lastActive, sessionExpiry time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"last_active":    lastActive,
		"session_expiry": sessionExpiry,
	})
}

func (r *GormUserRepository) Renew(ctx context.Context, id string, now, sessionExpiry time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ? AND session_expiry > ?", id, now).
		Updates(map[string]any{
			"last_active":    now,
			"session_expiry": sessionExpiry,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormUserRepository) SetSessionExpiry(ctx context.Context, id string, sessionExpiry time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"session_expiry": sessionExpiry})
}

// DecrementMessageCount consumes one send from the user's quota.
// Callers check the quota first under the user's lock.
func (r *GormUserRepository) DecrementMessageCount(ctx context.Context, id string) error {
	return r.updateColumns(ctx, id, map[string]any{
		"message_count": gorm.Expr("message_count - 1"),
	})
}

// ApplyPlan sets the tier and its quota grant; every paid tier is premium.
func (r *GormUserRepository) ApplyPlan(ctx context.Context, id string, plan db.Plan, messages, uploads int) error {
	return r.updateColumns(ctx, id, map[string]any{
		"plan":               plan,
		"is_premium":         plan != db.PlanFree,
		"message_count":      messages,
		"image_upload_count": uploads,
	})
}

// ListCandidates returns discoverable users for q.
//
// Behavior:
//   - Excludes the requester and everyone the requester already swiped on.
//   - Keeps candidates whose age is within [AgeMin, AgeMax] inclusive.
//   - Filters by gender when q.Gender is set.
//   - Insertion order, capped at q.Limit.
func (r *GormUserRepository) ListCandidates(ctx context.Context, q CandidateQuery) ([]db.User, error) {
	swiped := r.db.Model(&db.Swipe{}).Select("target_id").Where("actor_id = ?", q.UserID)

	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id <> ?", q.UserID).
		Where("id NOT IN (?)", swiped).
		Where("age BETWEEN ? AND ?", q.AgeMin, q.AgeMax).
		Order("created_at ASC, id ASC").
		Limit(q.Limit)
	if q.Gender != "" {
		query = query.Where("gender = ?", q.Gender)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormUserRepository) updateColumns(ctx context.Context, id string, cols map[string]any) error {
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Updates(cols).Error
}
