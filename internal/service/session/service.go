package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
)

// Claims is the signed payload of a session token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Service issues and verifies sessions.
//
// A request is authenticated only when BOTH checks pass:
//   - the signed token is valid and younger than Auth.TokenTTL (fixed);
//   - the user's sessionExpiry is in the future (sliding idle window,
//     renewed on every authenticated call).
//
// Logout only closes the idle window. A copied token stays cryptographically
// valid until its own expiry; there is no revocation list.
type Service struct {
	appCtx *app.AppContext
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// Issue signs a new HS256 token for userID.
func (s *Service) Issue(userID string) (string, error) {
	now := s.appCtx.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.appCtx.Config.Auth.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret())
	if err != nil {
		return "", svcErr.ErrInternal.Wrap(err)
	}
	return token, nil
}

// Extend records activity and pushes the idle expiry to now + IdleTimeout.
// It returns the new expiry.
func (s *Service) Extend(ctx context.Context, userID string) (time.Time, error) {
	now := s.appCtx.Now()
	expiry := now.Add(s.appCtx.Config.Auth.IdleTimeout)
	if err := s.appCtx.Store.Users.Touch(ctx, userID, now, expiry); err != nil {
		return time.Time{}, svcErr.Map(err)
	}
	return expiry, nil
}

// Renew slides the idle window of a session that is still open. A session
// that expired or was logged out since it was last read stays closed:
// ErrSessionExpired.
func (s *Service) Renew(ctx context.Context, userID string) (time.Time, error) {
	now := s.appCtx.Now()
	expiry := now.Add(s.appCtx.Config.Auth.IdleTimeout)
	renewed, err := s.appCtx.Store.Users.Renew(ctx, userID, now, expiry)
	if err != nil {
		return time.Time{}, svcErr.Map(err)
	}
	if !renewed {
		s.appCtx.Logger.Warn("session closed before renewal", "user_id", userID)
		return time.Time{}, svcErr.ErrSessionExpired
	}
	return expiry, nil
}

// Verify authenticates a raw token and renews the idle session.
//
// Order of checks:
//  1. signature, algorithm and fixed expiry → ErrInvalidToken
//  2. the referenced user exists → ErrUserNotFound
//  3. sessionExpiry > now → ErrSessionExpired
//
// On success lastActive and sessionExpiry are updated on the returned user.
// The renewal re-checks the expiry in storage, so a Logout landing after
// step 3 still wins.
func (s *Service) Verify(ctx context.Context, raw string) (*db.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.appCtx.Now),
	)
	if err != nil || claims.UserID == "" {
		return nil, svcErr.ErrInvalidToken
	}

	user, err := s.appCtx.Store.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		s.appCtx.Logger.Error("session lookup failed", "user_id", claims.UserID, "err", err)
		return nil, svcErr.Map(err)
	}

	now := s.appCtx.Now()
	if !user.SessionExpiry.After(now) {
		s.appCtx.Logger.Warn("session expired", "user_id", user.ID, "expired_at", user.SessionExpiry)
		return nil, svcErr.ErrSessionExpired
	}

	expiry, err := s.Renew(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.LastActive = now
	user.SessionExpiry = expiry
	return user, nil
}

// Logout closes the idle window immediately.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.appCtx.Store.Users.SetSessionExpiry(ctx, userID, time.Unix(0, 0).UTC()); err != nil {
		return svcErr.Map(err)
	}
	s.appCtx.Logger.Debug("logged out", "user_id", userID)
	return nil
}

func (s *Service) secret() []byte {
	return []byte(s.appCtx.Config.Auth.JWTSecret)
}
