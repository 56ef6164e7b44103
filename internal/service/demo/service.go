package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/lock"
	"github.com/oggyb/tembichat/internal/service/match"
)

const placeholderPhoto = "/placeholder.svg?height=400&width=300"

// Chat is a demo conversation summary.
type Chat struct {
	User        *db.User    `json:"user"`
	LastMessage *db.Message `json:"lastMessage"`
	UnreadCount int64       `json:"unreadCount"`
}

// Service owns the system demo accounts and the content new users see.
// It satisfies identity.Hooks.
type Service struct {
	appCtx  *app.AppContext
	matches *match.Service
}

func NewService(appCtx *app.AppContext, matches *match.Service) *Service {
	return &Service{appCtx: appCtx, matches: matches}
}

// EnsureAccounts creates any missing demo account. Safe to call on every start.
func (s *Service) EnsureAccounts(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(db.DemoCredential), s.appCtx.Config.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash demo credential: %w", err)
	}

	now := s.appCtx.Now()
	for _, a := range db.DemoAccounts {
		_, err := s.appCtx.Store.Users.GetByID(ctx, a.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("look up demo account %s: %w", a.ID, err)
		}

		u := &db.User{
			ID:              a.ID,
			Email:           a.Email,
			PasswordHash:    string(hash),
			Name:            a.Name,
			Age:             a.Age,
			Gender:          a.Gender,
			Bio:             a.Bio,
			Location:        "Tembisa, South Africa",
			Photos:          []string{placeholderPhoto},
			Videos:          []string{},
			Gifs:            []string{},
			Hobbies:         append([]string(nil), a.Hobbies...),
			FirstImpression: a.FirstImpression,
			BackgroundImage: "/placeholder.svg?height=200&width=400",
			Preferences:     a.Preferences,
			Settings: db.Settings{
				ShowOnlineStatus: true, EnableReadReceipts: true, ChatNotifications: true,
				DarkMode: true, Language: "English",
			},
			Plan:             db.PlanPro,
			IsPremium:        true,
			MessageCount:     db.Unlimited,
			ImageUploadCount: db.Unlimited,
			IsDemo:           true,
			LastActive:       now,
			SessionExpiry:    now,
			CreatedAt:        now,
		}
		if err := s.appCtx.Store.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("create demo account %s: %w", a.ID, err)
		}
		s.appCtx.Logger.Info("demo account created", "user_id", a.ID, "name", a.Name)
	}
	return nil
}

// OnRegister matches a new user with every demo account and drops one
// unread greeting per demo account into the chat.
func (s *Service) OnRegister(ctx context.Context, u *db.User) error {
	if _, err := s.matches.SeedDemoMatches(ctx, u.ID); err != nil {
		return err
	}
	_, err := s.EnsureGreetings(ctx, u.ID)
	return err
}

// OnLogin re-seeds demo matches only for users that have none.
func (s *Service) OnLogin(ctx context.Context, u *db.User) error {
	n, err := s.appCtx.Store.Matches.CountForUser(ctx, u.ID)
	if err != nil {
		return svcErr.Map(err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.matches.SeedDemoMatches(ctx, u.ID)
	return err
}

// EnsureGreetings writes the demo greeting into every empty conversation
// between userID and a demo account and returns how many it wrote.
func (s *Service) EnsureGreetings(ctx context.Context, userID string) (int, error) {
	created := 0
	now := s.appCtx.Now()
	for _, a := range db.DemoAccounts {
		if a.ID == userID {
			continue
		}
		ok, err := s.greet(ctx, a, userID, now)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *Service) greet(ctx context.Context, a db.DemoAccount, userID string, now time.Time) (bool, error) {
	unlock := s.appCtx.Locks.Lock(lock.PairKey(a.ID, userID))
	defer unlock()

	if _, err := s.appCtx.Store.Users.GetByID(ctx, a.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, svcErr.Map(err)
	}

	last, err := s.appCtx.Store.Messages.LastMessage(ctx, a.ID, userID)
	if err != nil {
		return false, svcErr.Map(err)
	}
	if last != nil {
		return false, nil
	}

	err = s.appCtx.Store.Messages.Create(ctx, &db.Message{
		ID:         db.NewMessageID(),
		SenderID:   a.ID,
		ReceiverID: userID,
		Content:    a.Greeting,
		IsDemo:     true,
		CreatedAt:  now.Add(-a.GreetingAge),
	})
	if err != nil {
		return false, svcErr.Map(err)
	}
	return true, nil
}

// Profiles returns the demo accounts userID has not swiped on yet.
func (s *Service) Profiles(ctx context.Context, userID string) ([]db.User, error) {
	demos, err := s.appCtx.Store.Users.GetMany(ctx, db.DemoUserIDs())
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]db.User, 0, len(demos))
	for _, d := range demos {
		if d.ID == userID {
			continue
		}
		_, err := s.appCtx.Store.Swipes.Get(ctx, userID, d.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Map(err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Chats makes sure every demo conversation has a greeting and summarizes them.
func (s *Service) Chats(ctx context.Context, userID string) ([]Chat, error) {
	if _, err := s.EnsureGreetings(ctx, userID); err != nil {
		return nil, err
	}
	demos, err := s.appCtx.Store.Users.GetMany(ctx, db.DemoUserIDs())
	if err != nil {
		return nil, svcErr.Map(err)
	}

	chats := make([]Chat, 0, len(demos))
	for i := range demos {
		d := &demos[i]
		if d.ID == userID {
			continue
		}
		last, err := s.appCtx.Store.Messages.LastMessage(ctx, userID, d.ID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		unread, err := s.appCtx.Store.Messages.UnreadCount(ctx, userID, d.ID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		chats = append(chats, Chat{User: d, LastMessage: last, UnreadCount: unread})
	}
	return chats, nil
}
