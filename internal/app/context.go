package app

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/tembichat/internal/cache"
	"github.com/oggyb/tembichat/internal/config"
	"github.com/oggyb/tembichat/internal/db"
	"github.com/oggyb/tembichat/internal/lock"
	"github.com/oggyb/tembichat/internal/repository"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	Store      *repository.Store
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	// Locks serializes check-then-act sequences per user, pair or payment.
	Locks *lock.Keyed
	// Now is the clock every service reads; tests replace it.
	Now func() time.Time
}

// New creates a new AppContext
func New(cfg *config.Config, database *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         database,
		Store:      repository.NewStore(database),
		RedisCache: rdb,
		Logger:     logger,
		Locks:      lock.NewKeyed(),
		Now:        db.NowUTC,
	}
}
