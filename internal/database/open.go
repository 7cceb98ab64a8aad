// Package database opens the configured storage driver and assembles repositories.
package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/squidcoin/internal/config"
	"github.com/prn-tf/squidcoin/internal/repository"
	"github.com/prn-tf/squidcoin/internal/repository/postgres"
	"github.com/prn-tf/squidcoin/internal/repository/sqlite"
)

// Handle is an open database with schema management.
type Handle interface {
	repository.DatabaseHealth

	// Migrate applies pending migrations and returns how many ran.
	Migrate(ctx context.Context) (int, error)

	// Version returns the applied schema version.
	Version(ctx context.Context) (int, error)
}

// Result contains the created repositories and database connection.
type Result struct {
	Repos    *repository.Repositories
	Database Handle

	// LatestVersion is the newest migration embedded for this driver.
	LatestVersion int
}

// Open connects to the configured driver. Migrations are not applied.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Result, error) {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(ctx, cfg, logger)
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenAndMigrate connects and applies pending migrations.
func OpenAndMigrate(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Result, error) {
	res, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := res.Database.Migrate(ctx); err != nil {
		_ = res.Database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return res, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Result, error) {
	sqlCfg := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sqlCfg.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		sqlCfg.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.CacheSize != 0 {
		sqlCfg.CacheSize = cfg.CacheSize
	}
	if cfg.SynchronousMode != "" {
		sqlCfg.SynchronousMode = cfg.SynchronousMode
	}

	db, err := sqlite.NewDB(ctx, sqlCfg, logger.With().Str("component", "sqlite").Logger())
	if err != nil {
		return nil, err
	}

	latest, err := sqlite.LatestVersion()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Result{
		Repos:         sqlite.NewRepositories(db),
		Database:      db,
		LatestVersion: latest,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Result, error) {
	db, err := postgres.NewDB(ctx, cfg, logger.With().Str("component", "postgres").Logger())
	if err != nil {
		return nil, err
	}

	latest, err := postgres.LatestVersion()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Result{
		Repos:         postgres.NewRepositories(db),
		Database:      db,
		LatestVersion: latest,
	}, nil
}
