package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/repository"
	"github.com/oggyb/tembichat/internal/service/session"
	"github.com/oggyb/tembichat/internal/testutil"
)

func TestVerify_RenewsIdleWindow(t *testing.T) {
	env := testutil.New(t)
	svc := session.NewService(env.App)
	ctx := context.Background()
	u := env.CreateUser(t, "Thandi")

	token, err := svc.Issue(u.ID)
	require.NoError(t, err)

	// 9 minutes idle: still inside the 10 minute window
	env.Clock.Advance(9 * time.Minute)
	got, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, env.Clock.Now().Add(10*time.Minute), got.SessionExpiry)

	// another 9 minutes: only alive because the previous call slid the window
	env.Clock.Advance(9 * time.Minute)
	_, err = svc.Verify(ctx, token)
	require.NoError(t, err)

	stored, err := env.App.Store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastActive.Equal(env.Clock.Now()))
}

func TestVerify_IdleExpiryWinsOverValidToken(t *testing.T) {
	env := testutil.New(t)
	svc := session.NewService(env.App)
	u := env.CreateUser(t, "Sipho")

	token, err := svc.Issue(u.ID)
	require.NoError(t, err)

	env.Clock.Advance(11 * time.Minute)
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, svcErr.ErrSessionExpired)
}

func TestVerify_FixedTokenExpiry(t *testing.T) {
	env := testutil.New(t)
	svc := session.NewService(env.App)
	ctx := context.Background()
	u := env.CreateUser(t, "Nomsa")

	token, err := svc.Issue(u.ID)
	require.NoError(t, err)

	// keep the idle window open while the token ages out
	env.Clock.Advance(25 * time.Hour)
	_, err = svc.Extend(ctx, u.ID)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, svcErr.ErrInvalidToken)
}

func TestVerify_RejectsForeignAndMalformedTokens(t *testing.T) {
	env := testutil.New(t)
	svc := session.NewService(env.App)
	ctx := context.Background()
	u := env.CreateUser(t, "Lwazi")

	_, err := svc.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, svcErr.ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(env.Clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(ctx, forged)
	assert.ErrorIs(t, err, svcErr.ErrInvalidToken)

	ghost, err := svc.Issue("no-such-user")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, ghost)
	assert.ErrorIs(t, err, svcErr.ErrUserNotFound)
}

func TestLogout_InvalidatesSessionButNotToken(t *testing.T) {
	env := testutil.New(t)
	svc := session.NewService(env.App)
	ctx := context.Background()
	u := env.CreateUser(t, "Vusi")

	token, err := svc.Issue(u.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, u.ID))

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, svcErr.ErrSessionExpired)

	// a fresh login re-opens the window and the old token works again
	_, err = svc.Extend(ctx, u.ID)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, token)
	assert.NoError(t, err)
}

// logoutBeforeRenew lets a logout land between Verify's expiry check and
// its renewal.
type logoutBeforeRenew struct {
	repository.UserRepository
	logout func()
}

func (r *logoutBeforeRenew) Renew(ctx context.Context, id string, now, expiry time.Time) (bool, error) {
	r.logout()
	return r.UserRepository.Renew(ctx, id, now, expiry)
}

func TestVerify_ConcurrentLogoutIsNotUndone(t *testing.T) {
	env := testutil.New(t)
	svc := session.NewService(env.App)
	ctx := context.Background()
	u := env.CreateUser(t, "Palesa")

	token, err := svc.Issue(u.ID)
	require.NoError(t, err)

	users := env.App.Store.Users
	env.App.Store.Users = &logoutBeforeRenew{
		UserRepository: users,
		logout:         func() { require.NoError(t, svc.Logout(ctx, u.ID)) },
	}
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, svcErr.ErrSessionExpired)

	env.App.Store.Users = users
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, svcErr.ErrSessionExpired)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.SessionExpiry.Equal(time.Unix(0, 0)))
}

func TestRenew_ClosedSessionStaysClosed(t *testing.T) {
	env := testutil.New(t)
	svc := session.NewService(env.App)
	ctx := context.Background()
	u := env.CreateUser(t, "Themba")

	expiry, err := svc.Renew(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, env.Clock.Now().Add(10*time.Minute), expiry)

	env.Clock.Advance(10 * time.Minute)
	_, err = svc.Renew(ctx, u.ID)
	assert.ErrorIs(t, err, svcErr.ErrSessionExpired, "expiry equal to now is closed")
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := testutil.New(t)
	svc := session.NewService(env.App)
	u := env.CreateUser(t, "Neo")
	token, err := svc.Issue(u.ID)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", svc.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": session.CurrentUser(c).ID})
	})

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid", "Bearer " + token, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Contains(t, w.Body.String(), tc.code)
			} else {
				assert.Contains(t, w.Body.String(), u.ID)
			}
		})
	}
}
