package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"autotidal/internal/repositories"
	"autotidal/internal/services"
	"autotidal/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loaded, err := shared.LoadConfig("config.toml"); err == nil {
			config = loaded
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	var session services.Session
	if config.Credentials.Tidal.ClientID != "" {
		if s, err := services.NewTidalSession(config.Credentials.Tidal, logger); err == nil {
			session = s
		} else {
			logger.Warn("tidal session unavailable", "error", err)
		}
	}

	var store *repositories.StateStore
	if _, err := os.Stat(config.Database.Path); err == nil {
		if db, err := shared.NewDatabase(config.Database.Path); err == nil {
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			if err := shared.RunMigrations(db); err == nil {
				store = repositories.NewStateStore(db)
				defer db.Close()
			} else {
				logger.Warn("resume database unavailable", "error", err)
				db.Close()
			}
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Session: session,
		Store:   store,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "autotidal",
		Usage:    "Recreate Spotify playlists on Tidal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
