package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/lock"
	"github.com/oggyb/tembichat/internal/service/session"
)

const (
	// Free-tier grant every new account starts with.
	freeMessages = 20
	freeUploads  = 5

	minAge = 18
	maxAge = 100

	// bcrypt ignores everything past 72 bytes; refuse instead of truncating.
	maxCredentialBytes = 72

	defaultLocation = "Tembisa, South Africa"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Registration is the sign-up payload.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

// Auth is returned by register and login.
type Auth struct {
	Token string   `json:"token"`
	User  *db.User `json:"user"`
}

// Hooks lets onboarding (demo content) react to new and returning users.
// Hook failures are logged and never fail the request.
type Hooks interface {
	OnRegister(ctx context.Context, u *db.User) error
	OnLogin(ctx context.Context, u *db.User) error
}

// Service owns user records and credential checks.
type Service struct {
	appCtx   *app.AppContext
	sessions *session.Service
	hooks    Hooks
}

// NewService creates the identity service. hooks may be nil.
func NewService(appCtx *app.AppContext, sessions *session.Service, hooks Hooks) *Service {
	return &Service{appCtx: appCtx, sessions: sessions, hooks: hooks}
}

// Register creates a free-tier account and opens its first session.
//
// Validation happens before any write, in this order:
//   - required fields (all missing ones reported together) → ErrMissingFields
//   - email shape → ErrInvalidEmailFormat
//   - age in [18,100] → ErrAgeOutOfRange
//   - gender and credential length → ErrValidation
//   - case-insensitive email uniqueness → ErrEmailAlreadyExists
func (s *Service) Register(ctx context.Context, reg Registration) (*Auth, error) {
	email := normalizeEmail(reg.Email)
	name := strings.TrimSpace(reg.Name)
	s.appCtx.Logger.Debug("Register called", "email", email)

	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if reg.Password == "" {
		missing = append(missing, "password")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	if reg.Age == 0 {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(reg.Gender) == "" {
		missing = append(missing, "gender")
	}
	if len(missing) > 0 {
		return nil, svcErr.ErrMissingFields.WithFields(missing...)
	}

	if !emailPattern.MatchString(email) {
		return nil, svcErr.ErrInvalidEmailFormat.WithFields("email")
	}
	if reg.Age < minAge || reg.Age > maxAge {
		return nil, svcErr.ErrAgeOutOfRange.WithFields("age")
	}
	gender := db.Gender(strings.ToLower(strings.TrimSpace(reg.Gender)))
	switch gender {
	case db.GenderMale, db.GenderFemale, db.GenderOther:
	default:
		return nil, svcErr.InvalidArgument("gender must be male, female or other", "gender")
	}
	if len(reg.Password) > maxCredentialBytes {
		return nil, svcErr.InvalidArgument("password must be at most 72 bytes", "password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.appCtx.Config.Auth.BcryptCost)
	if err != nil {
		return nil, svcErr.ErrInternal.Wrap(err)
	}

	unlock := s.appCtx.Locks.Lock(lock.EmailKey(email))
	defer unlock()

	if _, err := s.appCtx.Store.Users.FindByEmail(ctx, email); err == nil {
		return nil, svcErr.ErrEmailAlreadyExists.WithFields("email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}

	now := s.appCtx.Now()
	user := &db.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Age:          reg.Age,
		Gender:       gender,
		Location:     defaultLocation,
		Photos:       []string{},
		Videos:       []string{},
		Gifs:         []string{},
		Hobbies:      []string{},
		Preferences: db.Preferences{
			AgeMin: 18, AgeMax: 50, Gender: db.PreferBoth, Distance: 50,
		},
		Settings: db.Settings{
			ShowOnlineStatus:   true,
			EnableReadReceipts: true,
			ChatNotifications:  true,
			DarkMode:           true,
			Language:           "English",
		},
		Plan:             db.PlanFree,
		MessageCount:     freeMessages,
		ImageUploadCount: freeUploads,
		LastActive:       now,
		SessionExpiry:    now.Add(s.appCtx.Config.Auth.IdleTimeout),
		CreatedAt:        now,
	}
	if err := s.appCtx.Store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.ErrEmailAlreadyExists.WithFields("email")
		}
		s.appCtx.Logger.Error("create user failed", "err", err)
		return nil, svcErr.Map(err)
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	if s.hooks != nil {
		if err := s.hooks.OnRegister(ctx, user); err != nil {
			s.appCtx.Logger.Warn("onboarding after register failed", "user_id", user.ID, "err", err)
		}
	}

	s.appCtx.Logger.Info("user registered", "user_id", user.ID)
	return &Auth{Token: token, User: user}, nil
}

// Authenticate checks a credential, extends the idle session and issues a token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Auth, error) {
	email = normalizeEmail(email)
	s.appCtx.Logger.Debug("Authenticate called", "email", email)

	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, svcErr.ErrMissingFields.WithFields(missing...)
	}

	user, err := s.appCtx.Store.Users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrNoSuchAccount
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.appCtx.Logger.Warn("wrong credential", "user_id", user.ID)
		return nil, svcErr.ErrWrongCredential
	}

	expiry, err := s.sessions.Extend(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.LastActive = s.appCtx.Now()
	user.SessionExpiry = expiry

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	if s.hooks != nil {
		if err := s.hooks.OnLogin(ctx, user); err != nil {
			s.appCtx.Logger.Warn("onboarding after login failed", "user_id", user.ID, "err", err)
		}
	}

	return &Auth{Token: token, User: user}, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	user, err := s.appCtx.Store.Users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*db.User, error) {
	user, err := s.appCtx.Store.Users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return user, nil
}

// Update applies the allow-listed profile fields present in patch and
// renews the idle session. Fields absent from the patch are left untouched.
func (s *Service) Update(ctx context.Context, userID string, patch ProfilePatch) (*db.User, error) {
	s.appCtx.Logger.Debug("Update called", "user_id", userID)

	unlock := s.appCtx.Locks.Lock(lock.UserKey(userID))
	defer unlock()

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := patch.apply(user); err != nil {
		return nil, err
	}

	expiry, err := s.sessions.Renew(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.LastActive = s.appCtx.Now()
	user.SessionExpiry = expiry

	if err := s.appCtx.Store.Users.UpdateProfile(ctx, user); err != nil {
		s.appCtx.Logger.Error("save profile failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
