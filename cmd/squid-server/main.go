// Package main is the entry point for the Squid Coin server.
// Squid Coin is the accounting backend of a peer-to-peer file marketplace.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/auth"
	"github.com/prn-tf/squidcoin/internal/cache/memory"
	"github.com/prn-tf/squidcoin/internal/cache/redis"
	"github.com/prn-tf/squidcoin/internal/config"
	"github.com/prn-tf/squidcoin/internal/database"
	"github.com/prn-tf/squidcoin/internal/handler"
	"github.com/prn-tf/squidcoin/internal/lock"
	"github.com/prn-tf/squidcoin/internal/logging"
	"github.com/prn-tf/squidcoin/internal/metrics"
	"github.com/prn-tf/squidcoin/internal/repository"
	"github.com/prn-tf/squidcoin/internal/service"
	"github.com/prn-tf/squidcoin/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting Squid Coin server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Amounts render as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Database
	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Database.Close()

	if cfg.Database.AutoMigrate {
		applied, err := db.Database.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logger.Info().Int("applied", applied).Msg("Database migrations applied")
	}

	// Cache and locks
	var (
		cache  repository.Cache
		locker lock.Locker
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		cache = redis.NewCache(client)
		locker = lock.NewRedisLocker(redis.NewLock(client))
	} else {
		memCache := memory.NewCache()
		defer memCache.Stop()
		memLocker := lock.NewMemoryLocker()
		defer memLocker.Stop()
		cache = memCache
		locker = memLocker
		logger.Warn().Msg("Redis disabled, using in-process cache and locks")
	}

	users := repository.NewCachedUserRepository(db.Repos.User, cache, 0, logger)

	// Auth
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	authn := auth.NewAuthenticator(tokens, cfg.Auth.CookieName, logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Object storage is optional; downloads report unavailable without it
	var store storage.ObjectStore
	if cfg.Storage.S3.Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage.S3, logger)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		store = s3Store
	}

	// Services
	userService := service.NewUserService(users, tokens, cache, m, logger, service.UserConfig{
		BcryptCost:       cfg.Auth.BcryptCost,
		RSAKeyBits:       cfg.Auth.RSAKeyBits,
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		LoginWindow:      cfg.Auth.LoginWindow,
	})
	transactionService := service.NewTransactionService(db.Repos.Transaction, locker, users, m, logger)
	fileService := service.NewFileService(db.Repos.File, m, logger)
	downloadService := service.NewDownloadService(db.Repos.File, store, logger, service.DownloadConfig{
		KeyPrefix:  cfg.Storage.S3.KeyPrefix,
		PresignTTL: cfg.Storage.S3.PresignTTL,
	})

	expiry := service.NewExpiryService(db.Repos.Transaction, locker, m, logger, service.ExpiryConfig{
		Enabled:    cfg.Settlement.Enabled,
		Interval:   cfg.Settlement.Interval,
		PendingTTL: cfg.Settlement.PendingTTL,
		BatchSize:  cfg.Settlement.BatchSize,
	})
	if cfg.Settlement.Enabled {
		expiry.Start()
		defer expiry.Stop()
	}

	// Handlers
	routerConfig := handler.RouterConfig{
		Database:    db.Database,
		CORSOrigins: cfg.API.CORSOrigins,
		Logger:      logger,
	}
	if cfg.API.UsersEnabled {
		routerConfig.UserHandler = handler.NewUserHandler(userService, authn, handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
		}, cfg.Server.MaxBodySize, logger)
		routerConfig.TransactionHandler = handler.NewTransactionHandler(transactionService, authn, cfg.Server.MaxBodySize, logger)
	}
	if cfg.API.FilesEnabled {
		routerConfig.FileHandler = handler.NewFileHandler(fileService, downloadService, cfg.Server.MaxBodySize, logger)
	}
	if m != nil {
		routerConfig.Metrics = m
		if cfg.Metrics.Port == 0 {
			routerConfig.MetricsPath = cfg.Metrics.Path
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.NewRouter(routerConfig).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	servers := []*http.Server{server}
	if m != nil && cfg.Metrics.Port != 0 {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down server...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("addr", srv.Addr).Msg("graceful shutdown failed")
		}
	}
	return nil
}
