// Package main is the entry point for the Squid Coin admin CLI.
// This tool provides administrative commands for managing users, files, and settlement.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/config"
	"github.com/prn-tf/squidcoin/internal/database"
	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/lock"
	"github.com/prn-tf/squidcoin/internal/logging"
	"github.com/prn-tf/squidcoin/internal/metrics"
	"github.com/prn-tf/squidcoin/internal/pkg/crypto"
	"github.com/prn-tf/squidcoin/internal/service"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "version":
		fmt.Printf("Squid Coin Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		err = runUser(ctx, args)

	case "file":
		err = runFile(ctx, args)

	case "seed":
		err = runSeed(ctx, args)

	case "expire":
		err = runExpire(ctx, args)

	case "secret":
		err = runSecret(args)

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

// env is the opened store plus the config it came from.
type env struct {
	cfg    *config.Config
	db     *database.Result
	logger zerolog.Logger
}

func openEnv(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.New(cfg.Logging)

	db, err := database.OpenAndMigrate(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db, logger: logger}, nil
}

func (e *env) Close() {
	_ = e.db.Database.Close()
}

func (e *env) users() *service.UserService {
	return service.NewUserService(e.db.Repos.User, nil, nil, nil, e.logger, service.UserConfig{
		BcryptCost: e.cfg.Auth.BcryptCost,
		RSAKeyBits: e.cfg.Auth.RSAKeyBits,
	})
}

func runUser(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: squid-admin user <list|create|credit> [flags]")
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("user list", flag.ExitOnError)
		configPath := fs.String("config", "", "path to the configuration file")
		limit := fs.Int("limit", service.DefaultPageLimit, "maximum users to print")
		offset := fs.Int("offset", 0, "users to skip")
		_ = fs.Parse(args[1:])

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.users().List(ctx, *limit, *offset)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tBALANCE\tREPUTATION")
		for _, u := range result.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", u.ID, u.Username, u.Email, u.Balance, u.Reputation)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d of %d users\n", len(result.Items), result.Total)
		return nil

	case "create":
		fs := flag.NewFlagSet("user create", flag.ExitOnError)
		configPath := fs.String("config", "", "path to the configuration file")
		username := fs.String("username", "", "username (required)")
		email := fs.String("email", "", "email address (required)")
		password := fs.String("password", "", "password (required)")
		_ = fs.Parse(args[1:])

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.users().Signup(ctx, service.SignupInput{
			Username: *username,
			Email:    *email,
			Password: *password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (%s)\n\n", out.User.ID, out.User.Email)
		fmt.Println("Private key (shown once):")
		fmt.Print(out.PrivateKey)
		return nil

	case "credit":
		fs := flag.NewFlagSet("user credit", flag.ExitOnError)
		configPath := fs.String("config", "", "path to the configuration file")
		id := fs.String("id", "", "user ID (required)")
		amount := fs.String("amount", "0", "balance delta, may be negative")
		reputation := fs.Int("reputation", 0, "reputation delta, may be negative")
		_ = fs.Parse(args[1:])

		userID, err := uuid.Parse(*id)
		if err != nil {
			return fmt.Errorf("invalid --id: %w", err)
		}
		delta, err := decimal.NewFromString(*amount)
		if err != nil {
			return fmt.Errorf("invalid --amount: %w", err)
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		user, err := e.users().AdjustAccount(ctx, userID, delta, *reputation)
		if err != nil {
			return err
		}
		fmt.Printf("User %s: balance %s, reputation %d\n", user.ID, user.Balance, user.Reputation)
		return nil
	}

	return fmt.Errorf("unknown user command: %s", args[0])
}

func runFile(ctx context.Context, args []string) error {
	if len(args) < 1 || args[0] != "register" {
		return fmt.Errorf("usage: squid-admin file register --path <file> [flags]")
	}

	fs := flag.NewFlagSet("file register", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the configuration file")
	path := fs.String("path", "", "local file to register (required)")
	fileType := fs.String("type", "application/octet-stream", "MIME type")
	description := fs.String("description", "", "description")
	fee := fs.String("fee", "0", "download fee")
	published := fs.Bool("published", false, "offer the file for download")
	_ = fs.Parse(args[1:])

	if *path == "" {
		return fmt.Errorf("--path is required")
	}
	feeValue, err := decimal.NewFromString(*fee)
	if err != nil {
		return fmt.Errorf("invalid --fee: %w", err)
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	hash, size, err := crypto.ComputeStreamSHA256(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("hash %s: %w", *path, err)
	}

	e, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	name := filepath.Base(*path)
	file, err := service.NewFileService(e.db.Repos.File, nil, e.logger).Upload(ctx, service.UploadFileInput{
		Hash:        &hash,
		Name:        &name,
		Type:        fileType,
		Size:        &size,
		Description: description,
		IsPublished: published,
		Fee:         &feeValue,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s as %s (%d bytes)\n", file.Name, file.Hash, file.Size)
	return nil
}

// seedUsers are the demo accounts created by the seed command.
var seedUsers = []string{"alice", "bob", "carol"}

func runSeed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the configuration file")
	password := fs.String("password", "squidcoin123", "password for every demo user")
	credit := fs.String("credit", "100", "starting balance of every demo user")
	_ = fs.Parse(args)

	balance, err := decimal.NewFromString(*credit)
	if err != nil {
		return fmt.Errorf("invalid --credit: %w", err)
	}

	e, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	users := e.users()
	ids := make([]uuid.UUID, 0, len(seedUsers))
	for _, name := range seedUsers {
		out, err := users.Signup(ctx, service.SignupInput{
			Username: name,
			Email:    name + "@squidcoin.local",
			Password: *password,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := users.AdjustAccount(ctx, out.User.ID, balance, 0); err != nil {
			return fmt.Errorf("credit %s: %w", name, err)
		}
		ids = append(ids, out.User.ID)
		fmt.Printf("Created %-6s %s\n", name, out.User.ID)
	}

	transactions := service.NewTransactionService(e.db.Repos.Transaction, lock.NewNoOpLocker(), nil, nil, e.logger)
	seeds := []struct {
		sender, receiver int
		amount, fee      int64
		file             string
		status           domain.TransactionStatus
	}{
		{0, 1, 10, 1, "song.mp3", domain.TransactionCompleted},
		{1, 2, 5, 0, "notes.pdf", domain.TransactionPending},
		{2, 0, 3, 0, "photo.png", domain.TransactionFailed},
	}
	for _, sd := range seeds {
		tx, err := transactions.Create(ctx, ids[sd.sender], service.CreateTransactionInput{
			ReceiverID: ids[sd.receiver],
			Amount:     decimal.NewFromInt(sd.amount),
			Fee:        decimal.NewFromInt(sd.fee),
			FileName:   sd.file,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if sd.status != domain.TransactionPending {
			id := tx.TransactionID
			if tx, err = transactions.UpdateStatus(ctx, ids[sd.sender], id, sd.status); err != nil {
				return fmt.Errorf("update transaction %s: %w", id, err)
			}
		}
		fmt.Printf("Transaction %s %s -> %s: %s\n", tx.TransactionID, seedUsers[sd.sender], seedUsers[sd.receiver], tx.Status)
	}
	return nil
}

func runExpire(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("expire", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the configuration file")
	_ = fs.Parse(args)

	e, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	// MarkFailed only moves pending rows, so racing a server run is harmless
	expiry := service.NewExpiryService(e.db.Repos.Transaction, lock.NewNoOpLocker(), metrics.New(), e.logger, service.ExpiryConfig{
		Interval:   e.cfg.Settlement.Interval,
		PendingTTL: e.cfg.Settlement.PendingTTL,
		BatchSize:  e.cfg.Settlement.BatchSize,
	})

	result := expiry.RunOnce(ctx)
	fmt.Printf("Expired %d pending transactions (%d errors) in %s\n", result.Expired, result.Errors, result.Duration)
	if result.Errors > 0 {
		return fmt.Errorf("expiry finished with %d errors", result.Errors)
	}
	return nil
}

func runSecret(args []string) error {
	fs := flag.NewFlagSet("secret", flag.ExitOnError)
	size := fs.Int("bytes", 32, "random bytes before hex encoding")
	_ = fs.Parse(args)

	secret, err := crypto.GenerateSecret(*size)
	if err != nil {
		return err
	}
	fmt.Println(secret)
	return nil
}

func printUsage() {
	fmt.Println(`Squid Coin Admin CLI

Usage:
  squid-admin <command> [arguments]

Commands:
  user        Manage users (list, create, credit)
  file        Register a local file in the registry
  seed        Create demo users and transactions
  expire      Fail pending transactions older than the settlement TTL
  secret      Generate a random JWT signing secret
  version     Print version information
  help        Show this help message

Examples:
  squid-admin user create --username admin --email admin@example.com --password changeme123
  squid-admin user credit --id <uuid> --amount 100 --reputation 1
  squid-admin file register --path ./song.mp3 --type audio/mpeg --fee 1.5 --published
  squid-admin seed --password changeme123
  squid-admin expire --config config.yaml
  squid-admin secret

All commands except secret and version accept --config <path>.`)
}
