// Package testutil wires an isolated AppContext per test: a private
// in-memory sqlite database, a miniredis instance and a manual clock.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/cache"
	"github.com/oggyb/tembichat/internal/config"
	"github.com/oggyb/tembichat/internal/db"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Env is everything a test needs to drive services.
type Env struct {
	App   *app.AppContext
	Clock *Clock
	Redis *miniredis.Miniredis
}

// New spins up an in-memory SQLite DB named after the test, applies
// migrations, starts a miniredis, and wires everything into an AppContext.
//
// Each test gets its own isolated DB + Redis.
func New(t *testing.T) *Env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", sanitize(t.Name()))
	database, err := db.Open(sqlite.Open(dsn), logger.Discard)
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)

	cfg := config.New()
	cfg.App.ENV = "test"
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Payments.FastPayURL = "https://fastpay.test/pay"
	cfg.Payments.OzowURL = "https://ozow.test/pay"

	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	clock := NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	appCtx := app.New(cfg, database, redisCache, log)
	appCtx.Now = clock.Now

	return &Env{App: appCtx, Clock: clock, Redis: mr}
}

// UserOption tweaks a user before CreateUser inserts it.
type UserOption func(*db.User)

func WithID(id string) UserOption { return func(u *db.User) { u.ID = id } }

func WithAge(age int) UserOption { return func(u *db.User) { u.Age = age } }

func WithGender(g db.Gender) UserOption { return func(u *db.User) { u.Gender = g } }

func WithPreferences(p db.Preferences) UserOption {
	return func(u *db.User) { u.Preferences = p }
}

func WithPlan(plan db.Plan, messages int) UserOption {
	return func(u *db.User) {
		u.Plan = plan
		u.IsPremium = plan != db.PlanFree
		u.MessageCount = messages
	}
}

// CreateUser inserts a free-tier user with an active session.
func (e *Env) CreateUser(t *testing.T, name string, opts ...UserOption) *db.User {
	t.Helper()
	now := e.Clock.Now()
	u := &db.User{
		ID:               uuid.NewString(),
		Email:            strings.ToLower(name) + "@test.dev",
		PasswordHash:     "x",
		Name:             name,
		Age:              25,
		Gender:           db.GenderFemale,
		Photos:           []string{},
		Videos:           []string{},
		Gifs:             []string{},
		Hobbies:          []string{},
		Preferences:      db.Preferences{AgeMin: 18, AgeMax: 50, Gender: db.PreferBoth, Distance: 50},
		Plan:             db.PlanFree,
		MessageCount:     20,
		ImageUploadCount: 5,
		LastActive:       now,
		SessionExpiry:    now.Add(e.App.Config.Auth.IdleTimeout),
		CreatedAt:        now,
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, e.App.Store.Users.Create(context.Background(), u))
	// keep insertion order observable through created_at
	e.Clock.Advance(time.Millisecond)
	return u
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", "#", "_", "?", "_", "&", "_").Replace(name)
}
