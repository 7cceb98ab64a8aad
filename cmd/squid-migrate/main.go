// Package main is the entry point for the Squid Coin database migration tool.
// This tool manages the PostgreSQL and SQLite schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prn-tf/squidcoin/internal/config"
	"github.com/prn-tf/squidcoin/internal/database"
	"github.com/prn-tf/squidcoin/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", "", "path to the configuration file")
	_ = fs.Parse(os.Args[2:])

	var err error
	switch command {
	case "version":
		fmt.Printf("Squid Coin Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		err = withDatabase(*configPath, func(ctx context.Context, res *database.Result) error {
			applied, err := res.Database.Migrate(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s), schema at version %d\n", applied, res.LatestVersion)
			return nil
		})

	case "status":
		err = withDatabase(*configPath, func(ctx context.Context, res *database.Result) error {
			current, err := res.Database.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Current version: %d\n", current)
			fmt.Printf("Latest version:  %d\n", res.LatestVersion)
			if pending := res.LatestVersion - current; pending > 0 {
				fmt.Printf("Pending:         %d\n", pending)
			} else {
				fmt.Println("Schema is up to date")
			}
			return nil
		})

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func withDatabase(configPath string, fn func(ctx context.Context, res *database.Result) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.New(cfg.Logging)

	ctx := context.Background()
	res, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer res.Database.Close()

	return fn(ctx, res)
}

func printUsage() {
	fmt.Println(`Squid Coin Migration Tool

Usage:
  squid-migrate <command> [--config <path>]

Commands:
  up          Run all pending migrations
  status      Show current migration status
  version     Print version information
  help        Show this help message

Environment Variables:
  SQUID_DATABASE_DRIVER    sqlite or postgres
  SQUID_DATABASE_PATH      SQLite database file
  SQUID_DATABASE_HOST      PostgreSQL host (plus _PORT, _USER, _PASSWORD, _DATABASE)

Examples:
  squid-migrate up --config config.yaml
  squid-migrate status`)
}
