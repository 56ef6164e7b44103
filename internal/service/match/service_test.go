package match_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/service/match"
	"github.com/oggyb/tembichat/internal/testutil"
)

func setupService(t *testing.T) (*match.Service, *testutil.Env) {
	t.Helper()
	env := testutil.New(t)
	return match.NewService(env.App), env
}

// createDemoAccounts inserts the demo set the way startup would.
func createDemoAccounts(t *testing.T, env *testutil.Env) {
	t.Helper()
	for _, a := range db.DemoAccounts {
		env.CreateUser(t, a.Name, testutil.WithID(a.ID), testutil.WithPlan(db.PlanPro, db.Unlimited))
	}
}

func countMatches(t *testing.T, env *testutil.Env) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.App.DB.Model(&db.Match{}).Count(&n).Error)
	return n
}

func TestRecordSwipe_MutualLikeMatchesOnce(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A")
	b := env.CreateUser(t, "B")

	first, err := svc.RecordSwipe(ctx, a.ID, b.ID, "like")
	require.NoError(t, err)
	assert.False(t, first.IsMatch)

	second, err := svc.RecordSwipe(ctx, b.ID, a.ID, "like")
	require.NoError(t, err)
	assert.True(t, second.IsMatch)
	require.NotNil(t, second.Match)

	// repeating either side is a no-op
	again, err := svc.RecordSwipe(ctx, b.ID, a.ID, "like")
	require.NoError(t, err)
	assert.False(t, again.IsMatch)
	assert.True(t, again.Duplicate)

	assert.Equal(t, int64(1), countMatches(t, env))
}

func TestRecordSwipe_DislikeNeverMatches(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A")
	b := env.CreateUser(t, "B")

	_, err := svc.RecordSwipe(ctx, a.ID, b.ID, "like")
	require.NoError(t, err)
	res, err := svc.RecordSwipe(ctx, b.ID, a.ID, "dislike")
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
	assert.Equal(t, int64(0), countMatches(t, env))
}

func TestRecordSwipe_Validation(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A")
	b := env.CreateUser(t, "B")

	_, err := svc.RecordSwipe(ctx, a.ID, b.ID, "superlike")
	assert.ErrorIs(t, err, svcErr.ErrInvalidDirection)

	_, err = svc.RecordSwipe(ctx, a.ID, "", "like")
	assert.ErrorIs(t, err, svcErr.ErrMissingFields)

	_, err = svc.RecordSwipe(ctx, a.ID, a.ID, "like")
	assert.ErrorIs(t, err, svcErr.ErrSelfSwipe)

	_, err = svc.RecordSwipe(ctx, a.ID, "ghost", "like")
	assert.ErrorIs(t, err, svcErr.ErrUserNotFound)
}

func TestRecordSwipe_ConcurrentMutualLikes(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A")
	b := env.CreateUser(t, "B")

	var wg sync.WaitGroup
	results := make([]*match.SwipeResult, 2)
	errs := make([]error, 2)
	pairs := [][2]string{{a.ID, b.ID}, {b.ID, a.ID}}
	for i, p := range pairs {
		wg.Add(1)
		go func(i int, actor, target string) {
			defer wg.Done()
			results[i], errs[i] = svc.RecordSwipe(ctx, actor, target, "like")
		}(i, p[0], p[1])
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, results[0].IsMatch, results[1].IsMatch, "exactly one call reports the match")
	assert.Equal(t, int64(1), countMatches(t, env))
}

func TestDiscover_FiltersByPreferences(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()

	me := env.CreateUser(t, "Me",
		testutil.WithGender(db.GenderMale),
		testutil.WithPreferences(db.Preferences{AgeMin: 22, AgeMax: 30, Gender: db.PreferFemale, Distance: 50}),
	)
	edgeLow := env.CreateUser(t, "EdgeLow", testutil.WithAge(22))
	edgeHigh := env.CreateUser(t, "EdgeHigh", testutil.WithAge(30))
	env.CreateUser(t, "TooOld", testutil.WithAge(31))
	env.CreateUser(t, "Man", testutil.WithGender(db.GenderMale))
	swiped := env.CreateUser(t, "Swiped")

	_, err := svc.RecordSwipe(ctx, me.ID, swiped.ID, "dislike")
	require.NoError(t, err)

	got, err := svc.Discover(ctx, me.ID)
	require.NoError(t, err)
	ids := []string{}
	for _, u := range got {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{edgeLow.ID, edgeHigh.ID}, ids)
}

func TestDiscover_CapsAtTen(t *testing.T) {
	svc, env := setupService(t)
	me := env.CreateUser(t, "Me")
	for i := 0; i < 12; i++ {
		env.CreateUser(t, "Candidate"+string(rune('A'+i)))
	}

	got, err := svc.Discover(context.Background(), me.ID)
	require.NoError(t, err)
	assert.Len(t, got, 10)

	_, err = svc.Discover(context.Background(), "ghost")
	assert.ErrorIs(t, err, svcErr.ErrUserNotFound)
}

func TestListMatches_ResolvesOtherSideAndDropsMissing(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	me := env.CreateUser(t, "Me")
	peer := env.CreateUser(t, "Peer")

	_, _, err := env.App.Store.Matches.CreateIfAbsent(ctx, peer.ID, me.ID, env.Clock.Now())
	require.NoError(t, err)
	_, _, err = env.App.Store.Matches.CreateIfAbsent(ctx, me.ID, "deleted-user", env.Clock.Now())
	require.NoError(t, err)

	got, err := svc.ListMatches(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, peer.ID, got[0].ID)
	assert.Equal(t, "Peer", got[0].Name)
}

func TestSeedDemoMatches_Idempotent(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	createDemoAccounts(t, env)
	u := env.CreateUser(t, "Newbie")

	n, err := svc.SeedDemoMatches(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.SeedDemoMatches(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	matches, err := svc.ListMatches(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	for _, m := range matches {
		assert.True(t, db.IsDemoUser(m.ID))
		assert.False(t, m.MatchedAt.After(env.Clock.Now()))
		assert.True(t, m.MatchedAt.After(env.Clock.Now().Add(-7*24*time.Hour)))
	}
}

func TestCountLikedYou_CacheFirst(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	me := env.CreateUser(t, "Me")
	fan := env.CreateUser(t, "Fan")
	other := env.CreateUser(t, "Other")

	_, err := svc.RecordSwipe(ctx, fan.ID, me.ID, "like")
	require.NoError(t, err)

	n, err := svc.CountLikedYou(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, env.Redis.Exists("likes:count:"+me.ID))

	// a new like invalidates the cached value
	_, err = svc.RecordSwipe(ctx, other.ID, me.ID, "like")
	require.NoError(t, err)
	assert.False(t, env.Redis.Exists("likes:count:"+me.ID))

	n, err = svc.CountLikedYou(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// served from cache even if the store changes underneath
	require.NoError(t, env.Redis.Set("likes:count:"+me.ID, "42"))
	n, err = svc.CountLikedYou(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestListLikedYou_ProOnly(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	free := env.CreateUser(t, "Free")
	pro := env.CreateUser(t, "Pro", testutil.WithPlan(db.PlanPro, db.Unlimited))
	fan := env.CreateUser(t, "Fan")
	snubbed := env.CreateUser(t, "Snubbed")

	_, err := svc.ListLikedYou(ctx, free.ID, nil)
	assert.ErrorIs(t, err, svcErr.ErrPlanRequired)

	_, err = svc.RecordSwipe(ctx, fan.ID, pro.ID, "like")
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, snubbed.ID, pro.ID, "like")
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, pro.ID, snubbed.ID, "dislike")
	require.NoError(t, err)

	page, err := svc.ListLikedYou(ctx, pro.ID, nil)
	require.NoError(t, err)
	require.Len(t, page.Likers, 1)
	assert.Equal(t, fan.ID, page.Likers[0].User.ID)
	assert.Nil(t, page.NextPaginationToken)

	bad := "%%%"
	_, err = svc.ListLikedYou(ctx, pro.ID, &bad)
	assert.ErrorIs(t, err, svcErr.ErrValidation)
}
