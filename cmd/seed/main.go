package main

import (
	"context"
	"os"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/config"
	"github.com/oggyb/tembichat/internal/db"
	"github.com/oggyb/tembichat/internal/logger"
	"github.com/oggyb/tembichat/internal/service/demo"
	"github.com/oggyb/tembichat/internal/service/match"
)

// Seeds a persistent database (DB_DRIVER=mysql or a file-backed SQLITE_DSN).
// The default in-memory database dies with this process.
func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(cfg, database, nil, log)
	demos := demo.NewService(appCtx, match.NewService(appCtx))
	if err := demos.EnsureAccounts(context.Background()); err != nil {
		log.Error("failed to create demo accounts", "err", err)
		os.Exit(1)
	}

	if err := db.SeedSampleProfiles(database, cfg.Auth.BcryptCost); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed")
}
