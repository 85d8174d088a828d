package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chelorossi/backend-challenge/internal/config"
	"github.com/chelorossi/backend-challenge/internal/platform/postgres"
)

var errNoDatabase = errors.New("database.url is required to run migrations")

// runMigrations executes a goose command against the configured database.
func runMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.Database.URL == "" {
		return errNoDatabase
	}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn("failed to close database", "error", cerr)
		}
	}()

	logger.Info("running migrations", "command", command)
	if err := postgres.Migrate(ctx, db, command, logger); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	logger.Info("migrations finished", "command", command)
	return nil
}
