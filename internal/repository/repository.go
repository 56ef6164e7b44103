// Package repository is the storage boundary of the matchmaking core.
// Services depend on the interfaces below; the gorm implementations in this
// package back them with sqlite (volatile, default) or MySQL.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/db"
)

// CandidateQuery describes a discover request.
type CandidateQuery struct {
	UserID string
	AgeMin int
	AgeMax int
	// Gender restricts candidates; empty means any.
	Gender db.Gender
	Limit  int
}

type UserRepository interface {
	Create(ctx context.Context, u *db.User) error
	GetByID(ctx context.Context, id string) (*db.User, error)
	FindByEmail(ctx context.Context, email string) (*db.User, error)
	GetMany(ctx context.Context, ids []string) ([]db.User, error)
	// UpdateProfile writes the user-editable columns of u. Session, quota
	// and plan columns are left alone.
	UpdateProfile(ctx context.Context, u *db.User) error
	Touch(ctx context.Context, id string, lastActive, sessionExpiry time.Time) error
	// Renew slides the idle window only while the session is still open at
	// now; renewed is false once it expired or was logged out.
	Renew(ctx context.Context, id string, now, sessionExpiry time.Time) (renewed bool, err error)
	SetSessionExpiry(ctx context.Context, id string, sessionExpiry time.Time) error
	DecrementMessageCount(ctx context.Context, id string) error
	ApplyPlan(ctx context.Context, id string, plan db.Plan, messages, uploads int) error
	ListCandidates(ctx context.Context, q CandidateQuery) ([]db.User, error)
}

type SwipeRepository interface {
	// Create inserts the swipe unless the (actor, target) pair already has one.
	Create(ctx context.Context, s *db.Swipe) (created bool, err error)
	Get(ctx context.Context, actorID, targetID string) (*db.Swipe, error)
	HasLiked(ctx context.Context, actorID, targetID string) (bool, error)
	GetLikers(ctx context.Context, targetID string, paginationToken *string, limit int) ([]db.Swipe, *string, error)
	CountLikers(ctx context.Context, targetID string) (int64, error)
}

type MatchRepository interface {
	// CreateIfAbsent inserts a match for the unordered pair unless one exists.
	CreateIfAbsent(ctx context.Context, userA, userB string, matchedAt time.Time) (*db.Match, bool, error)
	Exists(ctx context.Context, userA, userB string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]db.Match, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *db.Message) error
	Conversation(ctx context.Context, userA, userB string) ([]db.Message, error)
	MarkRead(ctx context.Context, readerID, peerID string) (int64, error)
	LastMessage(ctx context.Context, userA, userB string) (*db.Message, error)
	UnreadCount(ctx context.Context, readerID, peerID string) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *db.Payment) error
	GetForUser(ctx context.Context, id, userID string) (*db.Payment, error)
	Save(ctx context.Context, p *db.Payment) error
	ListForUser(ctx context.Context, userID string) ([]db.Payment, error)
}

// Store bundles the repositories that share one connection or transaction.
type Store struct {
	Users    UserRepository
	Swipes   SwipeRepository
	Matches  MatchRepository
	Messages MessageRepository
	Payments PaymentRepository

	tx func(ctx context.Context, fn func(*Store) error) error
}

// NewStore binds all gorm repositories to the given DB connection.
func NewStore(database *gorm.DB) *Store {
	s := &Store{
		Users:    NewUserRepository(database),
		Swipes:   NewSwipeRepository(database),
		Matches:  NewMatchRepository(database),
		Messages: NewMessageRepository(database),
		Payments: NewPaymentRepository(database),
	}
	s.tx = func(ctx context.Context, fn func(*Store) error) error {
		return database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(NewStore(tx))
		})
	}
	return s
}

// Transaction runs fn against a store whose repositories share one
// transaction. Only the store passed to fn may be used inside it.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx == nil {
		return fn(s)
	}
	return s.tx(ctx, fn)
}
