package match

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/lock"
	"github.com/oggyb/tembichat/internal/metrics"
	"github.com/oggyb/tembichat/internal/repository"
	"github.com/oggyb/tembichat/internal/utils/pagination"
)

const (
	discoverLimit    = 10
	likedYouPageSize = 20
	// demo matches are backdated by up to a week
	demoMatchWindow = 7 * 24 * time.Hour
)

// SwipeResult is the outcome of RecordSwipe.
type SwipeResult struct {
	IsMatch bool `json:"isMatch"`
	// Duplicate is set when the pair already had a swipe; nothing was written.
	Duplicate bool      `json:"duplicate,omitempty"`
	Match     *db.Match `json:"match,omitempty"`
}

// MatchedUser is the other side of a match.
type MatchedUser struct {
	db.User
	MatchID   string    `json:"matchId"`
	MatchedAt time.Time `json:"matchedAt"`
}

// Liker is one entry of the liked-you list.
type Liker struct {
	User    *db.User  `json:"user"`
	LikedAt time.Time `json:"likedAt"`
}

type LikedYouPage struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"nextPaginationToken,omitempty"`
}

// Service implements swipes, discovery, matches and the liked-you views.
type Service struct {
	appCtx *app.AppContext
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// RecordSwipe stores actor's decision about target and reports whether it
// completed a match.
//
// Behavior:
//   - direction must be like or dislike → ErrInvalidDirection.
//   - A repeated swipe on the same target is a no-op: the first decision
//     stands and the result is {isMatch:false, duplicate:true}.
//   - A like checks for target's like on actor; if present the unordered
//     pair gets exactly one Match and isMatch is true.
//   - Swipe, reciprocal check and match insert run under the pair's lock in
//     one transaction, so two users liking each other at the same moment
//     still produce one match and one isMatch=true.
func (s *Service) RecordSwipe(ctx context.Context, actorID, targetID, direction string) (*SwipeResult, error) {
	s.appCtx.Logger.Debug("RecordSwipe called", "actor", actorID, "target", targetID, "direction", direction)

	dir := db.Direction(strings.ToLower(strings.TrimSpace(direction)))
	if dir != db.DirectionLike && dir != db.DirectionDislike {
		return nil, svcErr.ErrInvalidDirection.WithFields("direction")
	}
	if targetID == "" {
		return nil, svcErr.ErrMissingFields.WithFields("targetId")
	}
	if actorID == targetID {
		return nil, svcErr.ErrSelfSwipe
	}

	if _, err := s.appCtx.Store.Users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.ErrUserNotFound.WithFields("targetId")
		}
		return nil, svcErr.Map(err)
	}

	unlock := s.appCtx.Locks.Lock(lock.PairKey(actorID, targetID))
	defer unlock()

	now := s.appCtx.Now()
	result := &SwipeResult{}
	err := s.appCtx.Store.Transaction(ctx, func(tx *repository.Store) error {
		created, err := tx.Swipes.Create(ctx, &db.Swipe{
			ID:        uuid.NewString(),
			ActorID:   actorID,
			TargetID:  targetID,
			Direction: dir,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if !created {
			result.Duplicate = true
			return nil
		}
		if dir == db.DirectionDislike {
			return nil
		}

		reciprocal, err := tx.Swipes.HasLiked(ctx, targetID, actorID)
		if err != nil || !reciprocal {
			return err
		}
		m, _, err := tx.Matches.CreateIfAbsent(ctx, actorID, targetID, now)
		if err != nil {
			return err
		}
		result.IsMatch = true
		result.Match = m
		return nil
	})
	if err != nil {
		s.appCtx.Logger.Error("record swipe failed", "actor", actorID, "target", targetID, "err", err)
		return nil, svcErr.Map(err)
	}

	if result.Duplicate {
		return result, nil
	}

	metrics.RecordSwipe(string(dir))
	if result.IsMatch {
		metrics.RecordMatch("swipe")
		s.appCtx.Logger.Info("match created", "match_id", result.Match.ID, "user_a", result.Match.UserA, "user_b", result.Match.UserB)
	}

	// a like changes target's liked-you count; a dislike may hide target
	// from actor's list
	affected := targetID
	if dir == db.DirectionDislike {
		affected = actorID
	}
	if err := s.appCtx.RedisCache.InvalidateLikeCount(ctx, affected); err != nil {
		s.appCtx.Logger.Warn("invalidate like count failed", "user_id", affected, "err", err)
	}

	return result, nil
}

// Discover returns up to 10 candidates the user has not swiped on yet,
// filtered by the user's age range and preferred gender.
func (s *Service) Discover(ctx context.Context, userID string) ([]db.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	q := repository.CandidateQuery{
		UserID: userID,
		AgeMin: user.Preferences.AgeMin,
		AgeMax: user.Preferences.AgeMax,
		Limit:  discoverLimit,
	}
	if user.Preferences.Gender != db.PreferBoth {
		q.Gender = db.Gender(user.Preferences.Gender)
	}

	candidates, err := s.appCtx.Store.Users.ListCandidates(ctx, q)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if candidates == nil {
		candidates = []db.User{}
	}
	return candidates, nil
}

// ListMatches resolves every match of userID to the other participant.
// Matches whose other user no longer exists are dropped.
func (s *Service) ListMatches(ctx context.Context, userID string) ([]MatchedUser, error) {
	matches, err := s.appCtx.Store.Matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Other(userID))
	}
	users, err := s.appCtx.Store.Users.GetMany(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	byID := make(map[string]db.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]MatchedUser, 0, len(matches))
	for _, m := range matches {
		other, ok := byID[m.Other(userID)]
		if !ok {
			continue
		}
		out = append(out, MatchedUser{User: other, MatchID: m.ID, MatchedAt: m.MatchedAt})
	}
	return out, nil
}

// SeedDemoMatches makes sure userID is matched with every demo account and
// returns how many matches it created. Calling it again creates none.
// Demo accounts missing from the store are skipped.
func (s *Service) SeedDemoMatches(ctx context.Context, userID string) (int, error) {
	demos, err := s.appCtx.Store.Users.GetMany(ctx, db.DemoUserIDs())
	if err != nil {
		return 0, svcErr.Map(err)
	}

	created := 0
	now := s.appCtx.Now()
	for _, demo := range demos {
		if demo.ID == userID {
			continue
		}
		matchedAt := now.Add(-rand.N(demoMatchWindow))
		_, ok, err := s.appCtx.Store.Matches.CreateIfAbsent(ctx, userID, demo.ID, matchedAt)
		if err != nil {
			return created, svcErr.Map(err)
		}
		if ok {
			created++
			metrics.RecordMatch("demo")
		}
	}

	s.appCtx.Logger.Debug("demo matches seeded", "user_id", userID, "created", created)
	return created, nil
}

// CountLikedYou returns how many users liked userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID).
//  2. If cache miss or error, falls back to DB via repository.CountLikers.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, userID string) (int64, error) {
	s.appCtx.Logger.Debug("CountLikedYou called", "user_id", userID)

	n, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Warn("like count cache read failed", "user_id", userID, "err", err)
	}
	if ok {
		return n, nil
	}

	count, err := s.appCtx.Store.Swipes.CountLikers(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.UpdateLikeCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Warn("like count cache write failed", "user_id", userID, "err", err)
	}
	return count, nil
}

// ListLikedYou pages through the users who liked userID, newest first.
// Users the caller already disliked are left out. Pro plan only.
func (s *Service) ListLikedYou(ctx context.Context, userID string, paginationToken *string) (*LikedYouPage, error) {
	s.appCtx.Logger.Debug("ListLikedYou called", "user_id", userID)

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Plan != db.PlanPro {
		return nil, svcErr.ErrPlanRequired
	}

	swipes, next, err := s.appCtx.Store.Swipes.GetLikers(ctx, userID, paginationToken, likedYouPageSize)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, svcErr.InvalidArgument("invalid pagination token", "paginationToken")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids := make([]string, 0, len(swipes))
	for _, sw := range swipes {
		ids = append(ids, sw.ActorID)
	}
	users, err := s.appCtx.Store.Users.GetMany(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	byID := make(map[string]*db.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	page := &LikedYouPage{Likers: make([]Liker, 0, len(swipes)), NextPaginationToken: next}
	for _, sw := range swipes {
		if u, ok := byID[sw.ActorID]; ok {
			page.Likers = append(page.Likers, Liker{User: u, LikedAt: sw.CreatedAt})
		}
	}
	return page, nil
}

func (s *Service) getUser(ctx context.Context, userID string) (*db.User, error) {
	user, err := s.appCtx.Store.Users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return user, nil
}
